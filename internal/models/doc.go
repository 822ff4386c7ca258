// Package models defines the domain entities shared by the catalog, session, request and upload layers.
//
// The package contains three categories of types:
//
// 1. Catalog data: remote rows and their derived projection
//   - [CourseRecord] : one course-demand entry, decoded from the catalog feed's wire keys
//   - [GroupView] : records of one institution plus their summed request count
//   - [CourseForm] : a proposed new record entered by the user
//
// 2. Session data: state scoped to one browser-tab-like session
//   - [Identity] : the authenticated user
//   - [PendingIntent] : the action deferred behind an authentication detour
//   - [IdentityError] : closed taxonomy of identity provider failures
//
// 3. Upload data
//   - [UploadFile] : a file selected for upload
//   - [UploadBatchResult] : aggregated per-file outcomes of one batch
package models

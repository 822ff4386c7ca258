// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI browses the course catalog and drives the request pipeline:
//  1. [GroupsView] : Institutions with course counts and total requests; filter, sort, refresh
//  2. [RecordsView] : Courses of one institution; request, share, upload materials
//  3. [AuthView] : Sign in, sign up or Google sign-in when an action needs an identity
//  4. [CourseFormView] : Propose a new course
//  5. [UploadView] : Pick files for an unlocked course
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Notices flow through a channel from the engine and are shown in the status line.
//
// An action that needs an identity opens [AuthView]; after a successful sign-in the engine replays the held
// request and the TUI returns to the view the user came from.
package ui

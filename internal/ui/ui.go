package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/kplor/internal/formatter"
	"github.com/desertthunder/kplor/internal/models"
	"github.com/desertthunder/kplor/internal/shared"
	"github.com/desertthunder/kplor/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	GroupsView ViewState = iota
	RecordsView
	AuthView
	CourseFormView
	UploadView
)

const maxNotices = 3

// auth form fields
const (
	fieldName = iota
	fieldEmail
	fieldSecret
)

// Deps are the engine components the TUI drives.
type Deps struct {
	Catalog   *tasks.CatalogManager
	Session   *tasks.SessionController
	Pipeline  *tasks.RequestPipeline
	Uploads   *tasks.UploadOrchestrator // nil disables uploads
	Notices   <-chan tasks.Notice
	ShareLink string
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	deps     Deps
	view     ViewState
	returnTo ViewState
	width    int
	height   int

	groupList    list.Model
	recordList   list.Model
	groups       []models.GroupView
	institution  string
	sortKey      tasks.SortKey
	sortDir      tasks.SortDir
	filter       textinput.Model
	columnFilter textinput.Model
	filtering    bool

	authInputs   []textinput.Model
	signUp       bool
	formInputs   []textinput.Model
	formErrs     shared.ValidationErrors
	uploadInput  textinput.Model
	uploadTarget models.CourseRecord
	focus        int

	notices []tasks.Notice
	busy    bool
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, deps Deps) *Model {
	m := &Model{
		ctx:          ctx,
		deps:         deps,
		view:         GroupsView,
		groupList:    newList("Colleges"),
		recordList:   newList("Courses"),
		filter:       newInput("filter colleges"),
		columnFilter: newInput("filter courses"),
		uploadInput:  newInput("paths separated by spaces"),
		help:         help.New(),
		keys:         newKeyMap(),
	}

	m.authInputs = []textinput.Model{newInput("Full name"), newInput("Email"), newInput("Password")}
	m.authInputs[fieldSecret].EchoMode = textinput.EchoPassword
	m.authInputs[fieldSecret].EchoCharacter = '•'

	m.formInputs = []textinput.Model{newInput("College"), newInput("Semester"), newInput("Course"), newInput("Department")}
	return m
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	return l
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	return ti
}

// Init loads the catalog and starts listening for engine notices.
func (m *Model) Init() tea.Cmd {
	m.busy = true
	return tea.Batch(m.loadCatalog(true), m.waitForNotice())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.groupList.SetSize(msg.Width-4, msg.Height-10)
		m.recordList.SetSize(msg.Width-4, msg.Height-10)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case GroupsView:
			return m.handleGroupKeys(msg)
		case RecordsView:
			return m.handleRecordKeys(msg)
		case AuthView:
			return m.handleAuthKeys(msg)
		case CourseFormView:
			return m.handleFormKeys(msg)
		case UploadView:
			return m.handleUploadKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgCatalogLoaded:
		data := msg.data.(catalogLoaded)
		m.busy = false
		if data.err != nil {
			m.push(tasks.Notice{Level: tasks.LevelWarning, Title: "Catalog unavailable", Message: data.err.Error()})
		}
		m.rebuild()

	case MsgSubmitted:
		sub := msg.data.(tasks.Submission)
		m.busy = false
		return m, m.handleSubmission(sub)

	case MsgAuthDone:
		data := msg.data.(authDone)
		m.busy = false
		if data.err != nil {
			m.push(authFailureNotice(data.err))
			return m, nil
		}
		m.push(tasks.Notice{Phase: tasks.Authenticate, Level: tasks.LevelSuccess, Title: "Signed in", Message: data.identity.DisplayName})
		m.clearAuth()
		m.view = m.returnTo
		if m.view == CourseFormView {
			m.resetForm()
			m.view = GroupsView
			return m, m.loadCatalog(false)
		}
		m.rebuild()
		if data.replayed {
			return m, m.loadCatalog(false)
		}

	case MsgSignedOut:
		if err, _ := msg.data.(error); err != nil {
			m.push(tasks.Notice{Level: tasks.LevelError, Title: "Sign out failed", Message: err.Error()})
		} else {
			m.push(tasks.Notice{Phase: tasks.Authenticate, Level: tasks.LevelInfo, Title: "Signed out"})
		}
		m.rebuild()

	case MsgNotice:
		m.push(msg.data.(tasks.Notice))
		m.rebuild()
		return m, m.waitForNotice()

	case MsgUploadDone:
		data := msg.data.(uploadDone)
		m.busy = false
		m.view = RecordsView
		m.uploadInput.SetValue("")
		m.uploadInput.Blur()
		if data.err != nil {
			m.push(tasks.Notice{Phase: tasks.UploadFiles, Level: tasks.LevelError, Title: "Upload failed", Message: data.err.Error()})
			return m, nil
		}
		for _, f := range data.result.Failures {
			m.push(tasks.Notice{Phase: tasks.UploadFiles, Level: tasks.LevelWarning, Title: f.FileName, Message: f.Reason})
		}
	}
	return m, nil
}

func (m *Model) handleSubmission(sub tasks.Submission) tea.Cmd {
	if sub.Notice.Title != "" {
		m.push(sub.Notice)
	}

	switch sub.Outcome {
	case tasks.OutcomeAuthRequired:
		return m.openAuth(m.view)
	case tasks.OutcomeValidationFailure:
		var verrs shared.ValidationErrors
		if errors.As(sub.Err, &verrs) {
			m.formErrs = verrs
		}
		return nil
	case tasks.OutcomeAccepted, tasks.OutcomeDuplicate:
		if sub.Intent.Kind == models.IntentSubmitNew {
			m.resetForm()
			m.view = GroupsView
		}
		m.rebuild()
		return m.loadCatalog(false)
	}
	m.rebuild()
	return nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	switch m.view {
	case GroupsView:
		b.WriteString(m.renderGroups())
	case RecordsView:
		b.WriteString(m.renderRecords())
	case AuthView:
		b.WriteString(m.renderAuth())
	case CourseFormView:
		b.WriteString(m.renderForm())
	case UploadView:
		b.WriteString(m.renderUpload())
	}

	if status := m.renderNotices(); status != "" {
		b.WriteString("\n")
		b.WriteString(status)
	}
	return b.String()
}

func (m *Model) handleGroupKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		return m.updateFilter(msg, &m.filter)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if sel, ok := m.groupList.SelectedItem().(groupItem); ok {
			m.institution = sel.group.Institution
			m.columnFilter.SetValue("")
			m.recordList.Select(0)
			m.view = RecordsView
			m.rebuild()
		}
		return m, nil
	case key.Matches(msg, m.keys.filter):
		m.filtering = true
		return m, m.filter.Focus()
	case key.Matches(msg, m.keys.sortKey):
		if m.sortKey == tasks.SortByName {
			m.sortKey = tasks.SortByRequests
		} else {
			m.sortKey = tasks.SortByName
		}
		m.rebuild()
		return m, nil
	case key.Matches(msg, m.keys.sortDir):
		if m.sortDir == tasks.Asc {
			m.sortDir = tasks.Desc
		} else {
			m.sortDir = tasks.Asc
		}
		m.rebuild()
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		m.busy = true
		return m, m.loadCatalog(false)
	case key.Matches(msg, m.keys.newItem):
		return m, m.openForm()
	case key.Matches(msg, m.keys.signIn):
		return m, m.openAuth(GroupsView)
	case key.Matches(msg, m.keys.signOut):
		return m, m.signOut()
	}

	var cmd tea.Cmd
	m.groupList, cmd = m.groupList.Update(msg)
	return m, cmd
}

func (m *Model) handleRecordKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		return m.updateFilter(msg, &m.columnFilter)
	}

	rec, selected := m.selectedRecord()
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.institution = ""
		m.view = GroupsView
		return m, nil
	case key.Matches(msg, m.keys.filter):
		m.filtering = true
		return m, m.columnFilter.Focus()
	case key.Matches(msg, m.keys.enter):
		if !selected || m.busy {
			return m, nil
		}
		m.busy = true
		return m, m.requestExisting(rec.ID)
	case key.Matches(msg, m.keys.share):
		if selected {
			m.push(tasks.Notice{
				Level:     tasks.LevelInfo,
				RecordKey: rec.ID,
				Title:     formatter.ShareTitle(rec),
				Message:   formatter.ShareMessage(rec, m.deps.Catalog.Goal(), m.deps.ShareLink),
			})
		}
		return m, nil
	case key.Matches(msg, m.keys.upload):
		if selected {
			return m, m.openUpload(rec)
		}
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		m.busy = true
		return m, m.loadCatalog(false)
	case key.Matches(msg, m.keys.signIn):
		return m, m.openAuth(RecordsView)
	case key.Matches(msg, m.keys.signOut):
		return m, m.signOut()
	}

	var cmd tea.Cmd
	m.recordList, cmd = m.recordList.Update(msg)
	return m, cmd
}

func (m *Model) handleAuthKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.back):
		m.clearAuth()
		m.view = m.returnTo
		return m, nil
	case key.Matches(msg, m.keys.google):
		m.busy = true
		return m, m.signInWithProvider()
	case key.Matches(msg, m.keys.mode):
		m.signUp = !m.signUp
		return m, m.focusAuth(m.firstAuthField())
	case key.Matches(msg, m.keys.next):
		step := 1
		if msg.String() == "shift+tab" {
			step = -1
		}
		return m, m.focusAuth(m.nextAuthField(step))
	case key.Matches(msg, m.keys.enter):
		if m.focus < fieldSecret {
			return m, m.focusAuth(m.nextAuthField(1))
		}
		m.busy = true
		return m, m.authenticate()
	}

	var cmd tea.Cmd
	m.authInputs[m.focus], cmd = m.authInputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.back):
		m.view = GroupsView
		m.blurAll(m.formInputs)
		return m, nil
	case key.Matches(msg, m.keys.next):
		step := 1
		if msg.String() == "shift+tab" {
			step = -1
		}
		return m, m.focusForm((m.focus + step + len(m.formInputs)) % len(m.formInputs))
	case key.Matches(msg, m.keys.enter):
		if m.focus < len(m.formInputs)-1 {
			return m, m.focusForm(m.focus + 1)
		}
		m.busy = true
		return m, m.submitNew()
	}

	var cmd tea.Cmd
	m.formInputs[m.focus], cmd = m.formInputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) handleUploadKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.back):
		m.uploadInput.Blur()
		m.view = RecordsView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		paths := strings.Fields(m.uploadInput.Value())
		if len(paths) == 0 {
			return m, nil
		}
		m.busy = true
		return m, m.uploadFiles(m.uploadTarget, paths)
	}

	var cmd tea.Cmd
	m.uploadInput, cmd = m.uploadInput.Update(msg)
	return m, cmd
}

func (m *Model) updateFilter(msg tea.KeyMsg, input *textinput.Model) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		input.SetValue("")
		fallthrough
	case "enter":
		m.filtering = false
		input.Blur()
		m.rebuild()
		return m, nil
	}

	var cmd tea.Cmd
	*input, cmd = input.Update(msg)
	m.rebuild()
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case GroupsView:
		m.groupList, cmd = m.groupList.Update(msg)
	case RecordsView:
		m.recordList, cmd = m.recordList.Update(msg)
	}
	return m, cmd
}

// rebuild re-projects the catalog into both lists, keeping the cursor where possible.
func (m *Model) rebuild() {
	records := m.deps.Catalog.Records()
	m.groups = tasks.Project(records, m.filter.Value(), m.sortKey, m.sortDir)

	items := make([]list.Item, len(m.groups))
	for i, g := range m.groups {
		items[i] = groupItem{group: g}
	}
	idx := m.groupList.Index()
	m.groupList.SetItems(items)
	if idx < len(items) {
		m.groupList.Select(idx)
	}
	m.groupList.Title = fmt.Sprintf("Colleges (by %s, %s)", m.sortKey, m.sortDir)

	if m.institution == "" {
		return
	}

	var group models.GroupView
	for _, g := range tasks.Project(records, "", m.sortKey, m.sortDir) {
		if g.Institution == m.institution {
			group = g
			break
		}
	}

	rows := tasks.Expand(group, tasks.ColumnFilters{Title: m.columnFilter.Value()})
	recordItems := make([]list.Item, len(rows))
	for i, rec := range rows {
		recordItems[i] = recordItem{record: rec, goal: m.deps.Catalog.Goal(), requested: m.deps.Pipeline.CanUploadRecord(rec)}
	}
	idx = m.recordList.Index()
	m.recordList.SetItems(recordItems)
	if idx < len(recordItems) {
		m.recordList.Select(idx)
	}
	m.recordList.Title = fmt.Sprintf("%s (%d requests)", m.institution, group.TotalRequests)
}

func (m *Model) selectedRecord() (models.CourseRecord, bool) {
	sel, ok := m.recordList.SelectedItem().(recordItem)
	if !ok {
		return models.CourseRecord{}, false
	}
	return sel.record, true
}

func (m *Model) push(n tasks.Notice) {
	m.notices = append(m.notices, n)
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}

func (m *Model) openAuth(from ViewState) tea.Cmd {
	if from != AuthView {
		m.returnTo = from
	}
	m.view = AuthView
	return m.focusAuth(m.firstAuthField())
}

func (m *Model) clearAuth() {
	for i := range m.authInputs {
		m.authInputs[i].SetValue("")
	}
	m.blurAll(m.authInputs)
	m.signUp = false
}

func (m *Model) firstAuthField() int {
	if m.signUp {
		return fieldName
	}
	return fieldEmail
}

func (m *Model) nextAuthField(step int) int {
	first := m.firstAuthField()
	n := fieldSecret - first + 1
	return first + ((m.focus-first+step)%n+n)%n
}

func (m *Model) focusAuth(i int) tea.Cmd {
	m.blurAll(m.authInputs)
	m.focus = i
	return m.authInputs[i].Focus()
}

func (m *Model) openForm() tea.Cmd {
	m.view = CourseFormView
	m.formErrs = nil
	return m.focusForm(0)
}

func (m *Model) resetForm() {
	for i := range m.formInputs {
		m.formInputs[i].SetValue("")
	}
	m.blurAll(m.formInputs)
	m.formErrs = nil
}

func (m *Model) focusForm(i int) tea.Cmd {
	m.blurAll(m.formInputs)
	m.focus = i
	return m.formInputs[i].Focus()
}

func (m *Model) openUpload(rec models.CourseRecord) tea.Cmd {
	if m.deps.Uploads == nil {
		m.push(tasks.Notice{Phase: tasks.UploadFiles, Level: tasks.LevelWarning, Title: "Uploads disabled", Message: "No storage provider is configured."})
		return nil
	}
	if !m.deps.Pipeline.CanUploadRecord(rec) {
		m.push(tasks.Notice{Phase: tasks.UploadFiles, Level: tasks.LevelWarning, RecordKey: rec.ID, Title: "Upload locked", Message: "Request this course to upload materials."})
		return nil
	}
	m.uploadTarget = rec
	m.view = UploadView
	return m.uploadInput.Focus()
}

func (m *Model) blurAll(inputs []textinput.Model) {
	for i := range inputs {
		inputs[i].Blur()
	}
}

func (m *Model) loadCatalog(warm bool) tea.Cmd {
	return func() tea.Msg {
		if warm {
			_ = m.deps.Catalog.Warm()
		}
		records, err := m.deps.Catalog.Refresh(m.ctx)
		return catalogLoadedMsg(records, err)
	}
}

func (m *Model) requestExisting(id string) tea.Cmd {
	return func() tea.Msg {
		return submittedMsg(m.deps.Pipeline.RequestExisting(m.ctx, id))
	}
}

func (m *Model) submitNew() tea.Cmd {
	form := models.CourseForm{
		Institution: m.formInputs[0].Value(),
		Term:        m.formInputs[1].Value(),
		Title:       m.formInputs[2].Value(),
		Department:  m.formInputs[3].Value(),
	}
	return func() tea.Msg {
		return submittedMsg(m.deps.Pipeline.SubmitNew(m.ctx, form))
	}
}

func (m *Model) authenticate() tea.Cmd {
	name := m.authInputs[fieldName].Value()
	email := m.authInputs[fieldEmail].Value()
	secret := m.authInputs[fieldSecret].Value()
	signUp := m.signUp

	return func() tea.Msg {
		var (
			id  models.Identity
			err error
		)
		if signUp {
			id, err = m.deps.Session.SignUp(m.ctx, name, email, secret)
		} else {
			id, err = m.deps.Session.SignIn(m.ctx, email, secret)
		}
		_, replayed := m.deps.Pipeline.TakeReplayed()
		return authDoneMsg(id, replayed, err)
	}
}

func (m *Model) signInWithProvider() tea.Cmd {
	return func() tea.Msg {
		id, err := m.deps.Session.SignInWithProvider(m.ctx)
		_, replayed := m.deps.Pipeline.TakeReplayed()
		return authDoneMsg(id, replayed, err)
	}
}

func (m *Model) signOut() tea.Cmd {
	return func() tea.Msg {
		return signedOutMsg(m.deps.Session.SignOut(m.ctx))
	}
}

func (m *Model) uploadFiles(rec models.CourseRecord, paths []string) tea.Cmd {
	return func() tea.Msg {
		recordKey, ok := m.deps.Pipeline.UploadKey(rec)
		if !ok {
			return uploadDoneMsg(nil, fmt.Errorf("%w: %s", shared.ErrUploadLocked, rec.ID))
		}
		files, err := tasks.FilesFromPaths(paths)
		if err != nil {
			return uploadDoneMsg(nil, err)
		}
		result, err := m.deps.Uploads.UploadBatch(m.ctx, files, recordKey, rec.Title)
		return uploadDoneMsg(result, err)
	}
}

func (m *Model) waitForNotice() tea.Cmd {
	ch := m.deps.Notices
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg(n)
	}
}

// authFailureNotice turns a sign-in error into the message shown under the form.
func authFailureNotice(err error) tasks.Notice {
	n := tasks.Notice{Phase: tasks.Authenticate, Level: tasks.LevelError, Title: "Authentication Error"}

	var ierr *models.IdentityError
	var verrs shared.ValidationErrors
	switch {
	case errors.As(err, &ierr):
		n.Message = ierr.Code.Message()
	case errors.As(err, &verrs):
		n.Title = "Check the form"
		n.Message = verrs.Error()
	default:
		n.Message = err.Error()
	}
	return n
}

func (m *Model) renderHeader() string {
	who := "Not signed in"
	if id, ok := m.deps.Session.Current(); ok {
		who = fmt.Sprintf("Signed in as %s <%s>", id.DisplayName, id.Email)
	}
	header := styles.title.Render("Course Requests") + "\n" + styles.help.Render(who)
	if m.busy {
		header += " " + styles.warn.Render("working...")
	}
	return header
}

func (m *Model) renderGroups() string {
	var b strings.Builder
	if m.filtering || m.filter.Value() != "" {
		b.WriteString("Filter: " + m.filter.View() + "\n")
	}
	if len(m.groups) == 0 && !m.busy {
		b.WriteString(styles.help.Render("No courses found.") + "\n")
	} else {
		b.WriteString(m.groupList.View() + "\n")
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.filter, m.keys.sortKey, m.keys.sortDir, m.keys.refresh, m.keys.newItem, m.authKey(), m.keys.quit}
	b.WriteString(m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderRecords() string {
	var b strings.Builder
	if m.filtering || m.columnFilter.Value() != "" {
		b.WriteString("Course: " + m.columnFilter.View() + "\n")
	}
	b.WriteString(m.recordList.View() + "\n")

	requestKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "request"))
	helpKeys := []key.Binding{requestKey, m.keys.share, m.keys.upload, m.keys.filter, m.keys.back, m.authKey(), m.keys.quit}
	b.WriteString(m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) authKey() key.Binding {
	if _, ok := m.deps.Session.Current(); ok {
		return m.keys.signOut
	}
	return m.keys.signIn
}

func (m *Model) renderAuth() string {
	var b strings.Builder
	title := "Sign in to continue"
	if m.signUp {
		title = "Create an account"
	}
	b.WriteString(styles.title.Render(title) + "\n")

	if pending, ok := m.deps.Pipeline.PendingIntent(); ok {
		b.WriteString(styles.help.Render(fmt.Sprintf("Your request (%s) will be sent after you sign in.", pending)) + "\n\n")
	}

	labels := []string{"Name", "Email", "Password"}
	for i := m.firstAuthField(); i <= fieldSecret; i++ {
		label := labels[i]
		if i == m.focus {
			label = styles.focus.Render(label)
		}
		b.WriteString(fmt.Sprintf("%s\n%s\n\n", label, m.authInputs[i].View()))
	}

	submitKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit"))
	b.WriteString(m.help.ShortHelpView([]key.Binding{submitKey, m.keys.next, m.keys.mode, m.keys.google, m.keys.back}))
	return b.String()
}

func (m *Model) renderForm() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Request a new course") + "\n")

	fields := []string{"college", "semester", "course", "department"}
	labels := []string{"College", "Semester", "Course", "Department"}
	for i, input := range m.formInputs {
		label := labels[i]
		if i == m.focus {
			label = styles.focus.Render(label)
		}
		b.WriteString(label + "\n" + input.View() + "\n")
		if msg := m.formErrs.Field(fields[i]); msg != "" {
			b.WriteString(styles.err.Render(msg) + "\n")
		}
		b.WriteString("\n")
	}

	submitKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "next/submit"))
	b.WriteString(m.help.ShortHelpView([]key.Binding{submitKey, m.keys.next, m.keys.back}))
	return b.String()
}

func (m *Model) renderUpload() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("Upload materials for %s", m.uploadTarget.Title)) + "\n")
	b.WriteString("Files\n" + m.uploadInput.View() + "\n\n")

	uploadKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "upload"))
	b.WriteString(m.help.ShortHelpView([]key.Binding{uploadKey, m.keys.back}))
	return b.String()
}

func (m *Model) renderNotices() string {
	lines := make([]string, 0, len(m.notices))
	for _, n := range m.notices {
		lines = append(lines, styles.level(n.Level).Render(n.String()))
	}
	return strings.Join(lines, "\n")
}

package tasks

import (
	"fmt"

	"github.com/desertthunder/kplor/internal/models"
)

// Notice is a short user-facing report from a core operation.
//
// Notices are informational: they never replace the returned outcome, and a dropped notice loses nothing.
type Notice struct {
	Phase     Phase  // Operation phase
	Level     Level  // Severity for display
	RecordKey string // Record id or composite key the notice concerns, if any
	Title     string // Short heading
	Message   string // Human-readable message for display
	Step      int    // Current step number within phase
	Total     int    // Total steps in this phase
	Data      any    // Optional phase-specific data for advanced UIs
}

func (n Notice) String() string {
	if n.Message == "" {
		return n.Title
	}
	return fmt.Sprintf("%s: %s", n.Title, n.Message)
}

// Operation phase enumeration
type Phase int

const (
	FetchCatalog Phase = iota
	Authenticate
	AwaitAuth
	Commit
	ResolveContainer
	UploadFiles
)

func (p Phase) String() string {
	switch p {
	case FetchCatalog:
		return "fetch_catalog"
	case Authenticate:
		return "authenticate"
	case AwaitAuth:
		return "await_auth"
	case Commit:
		return "commit"
	case ResolveContainer:
		return "resolve_container"
	case UploadFiles:
		return "upload_files"
	default:
		return ""
	}
}

// Level is the severity of a [Notice].
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// sendNotice sends a notice through the channel without blocking.
func sendNotice(ch chan<- Notice, n Notice) {
	if ch == nil {
		return
	}
	select {
	case ch <- n:
	default:
	}
}

func catalogStaleNotice(err error) Notice {
	return Notice{
		Phase:   FetchCatalog,
		Level:   LevelWarning,
		Title:   "Catalog unavailable",
		Message: fmt.Sprintf("Showing the last loaded catalog. %v", err),
	}
}

func authRequiredNotice(intent models.PendingIntent) Notice {
	return Notice{
		Phase:     AwaitAuth,
		Level:     LevelInfo,
		RecordKey: intentKey(intent),
		Title:     "Sign in required",
		Message:   "Sign in or create an account to continue your request.",
	}
}

func requestAcceptedNotice(key string) Notice {
	return Notice{Phase: Commit, Level: LevelSuccess, RecordKey: key, Title: "Course requested!", Message: "Your request has been added successfully."}
}

func courseSubmittedNotice(key string) Notice {
	return Notice{Phase: Commit, Level: LevelSuccess, RecordKey: key, Title: "Request Accepted!", Message: "Congratulations! Your request has been registered."}
}

func duplicateNotice(key string) Notice {
	return Notice{Phase: Commit, Level: LevelInfo, RecordKey: key, Title: "Already requested", Message: "You have already requested this course."}
}

func rejectedNotice(key, result string) Notice {
	return Notice{Phase: Commit, Level: LevelError, RecordKey: key, Title: "Request Failed", Message: fmt.Sprintf("Failed to add your request: %s", result)}
}

func transportNotice(key string) Notice {
	return Notice{Phase: Commit, Level: LevelError, RecordKey: key, Title: "Network Error", Message: "Could not connect to the request service."}
}

func validationNotice(key string, err error) Notice {
	return Notice{Phase: Commit, Level: LevelError, RecordKey: key, Title: "Check the form", Message: err.Error()}
}

func containerNotice(name, id string, created bool) Notice {
	verb := "Using"
	if created {
		verb = "Created"
	}
	return Notice{Phase: ResolveContainer, Level: LevelInfo, Title: "Storage folder", Message: fmt.Sprintf("%s %s", verb, name), Data: id}
}

func fileUploadedNotice(step, total int, name string) Notice {
	return Notice{Phase: UploadFiles, Level: LevelInfo, Step: step, Total: total, Title: "Uploaded", Message: name}
}

func fileFailedNotice(step, total int, name string, err error) Notice {
	return Notice{Phase: UploadFiles, Level: LevelWarning, Step: step, Total: total, Title: "Upload failed", Message: fmt.Sprintf("%s: %v", name, err)}
}

func batchNotice(result *models.UploadBatchResult) Notice {
	n := Notice{
		Phase: UploadFiles,
		Title: "Upload finished",
		Data:  result,
		Step:  len(result.SucceededFileIDs),
		Total: len(result.SucceededFileIDs) + len(result.Failures),
	}
	n.Message = fmt.Sprintf("%d of %d files uploaded", n.Step, n.Total)
	if result.Success() {
		n.Level = LevelSuccess
	} else {
		n.Level = LevelError
	}
	return n
}

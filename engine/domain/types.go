// Package domain defines the shared vocabulary of the network translation
// pipeline: sentinel errors, user-facing notices and the diagram color palette.
package domain

// Severity grades a user-facing notice.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notice is a synchronous user-facing alert produced by a pass.
type Notice struct {
	Severity Severity `json:"severity"`
	CellID   string   `json:"cell_id,omitempty"`
	Message  string   `json:"message"`
}

// NoticeFromError converts a recoverable element failure into a notice.
func NoticeFromError(err error) Notice {
	id, _ := CellOf(err)
	return Notice{Severity: SeverityError, CellID: id, Message: err.Error()}
}

// Stroke colors written onto diagram elements.
const (
	ColorDanger  = "#FF0000"
	ColorWarning = "#FFA500"
	ColorGood    = "#008000"

	// Failure flags. Two- and three-winding failures differ so they can be
	// told apart on the canvas.
	ColorUnconnected         = "#DC143C"
	ColorTwoWindingFailure   = "#FF00FF"
	ColorThreeWindingFailure = "#FF8C00"
)

// UnknownUser is the identity attached to simulation parameters when no
// caller identity can be resolved.
const UnknownUser = "unknown"

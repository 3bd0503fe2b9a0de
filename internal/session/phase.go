package session

// Phase 是分析视图的状态
type Phase int

const (
	PhaseNoReport Phase = iota
	PhaseReportUploading
	PhaseReportReady
	PhaseAnswerPending
)

func (p Phase) String() string {
	switch p {
	case PhaseNoReport:
		return "NoReport"
	case PhaseReportUploading:
		return "ReportUploading"
	case PhaseReportReady:
		return "ReportReady"
	case PhaseAnswerPending:
		return "AnswerPending"
	default:
		return "Unknown"
	}
}

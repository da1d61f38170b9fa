package agent

// TaskPayload is the action-specific payload of a FETCH_TALLY command
type TaskPayload struct {
	CompanyName string `json:"companyName"`
	Port        int    `json:"port"`
}

// Command is the envelope an agent receives for a dispatched task.
// Field order is fixed by the struct, which keeps the JSON serialization
// deterministic for signing.
type Command struct {
	RequestID string      `json:"requestId"`
	Action    string      `json:"action"`
	Payload   TaskPayload `json:"payload"`
}

// SignedCommand carries a command plus its HMAC-SHA256 signature
type SignedCommand struct {
	Command
	Signature string `json:"signature"`
}

// ReportData is the payload portion of an agent report
type ReportData struct {
	XML string `json:"xml"`
}

// ReportClaims is the signed portion of an inbound agent report: identity,
// payload and timestamp. The raw XML is inside the claims, so swapping the
// payload of a captured report invalidates its signature.
type ReportClaims struct {
	RequestID   string     `json:"requestId"`
	CompanyName string     `json:"companyName"`
	Data        ReportData `json:"data"`
	Timestamp   string     `json:"timestamp"`
}

// TallyReport is the body of a receive-tally call
type TallyReport struct {
	RequestID   string     `json:"requestId"`
	CompanyName string     `json:"companyName"`
	Data        ReportData `json:"data"`
	Timestamp   string     `json:"timestamp"`
	Signature   string     `json:"signature"`
	Error       string     `json:"error,omitempty"`
}

// Claims returns the signed portion of the report
func (t TallyReport) Claims() ReportClaims {
	return ReportClaims{
		RequestID:   t.RequestID,
		CompanyName: t.CompanyName,
		Data:        t.Data,
		Timestamp:   t.Timestamp,
	}
}

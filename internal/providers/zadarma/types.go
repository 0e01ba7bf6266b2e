package zadarma

import "encoding/json"

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type pbxStatsResponse struct {
	envelope
	Stats []json.RawMessage `json:"stats"`
}

type pbxStat struct {
	CallID      string `json:"call_id"`
	PBXCallID   string `json:"pbx_call_id"`
	SIP         any    `json:"sip"`
	CallStart   any    `json:"callstart"`
	CLID        any    `json:"clid"`
	Destination any    `json:"destination"`
	Disposition string `json:"disposition"`
	Seconds     any    `json:"seconds"`
	IsRecorded  any    `json:"is_recorded"`
}

type balanceResponse struct {
	envelope
	Balance  any    `json:"balance"`
	Currency string `json:"currency"`
}

type directNumbersResponse struct {
	envelope
	Info []json.RawMessage `json:"info"`
}

type directNumber struct {
	Number      any    `json:"number"`
	Status      string `json:"status"`
	Description string `json:"description"`
	NumberName  string `json:"number_name"`
	StopDate    string `json:"stop_date"`
}

type sipResponse struct {
	envelope
	SIPs []json.RawMessage `json:"sips"`
}

type sipAccount struct {
	ID          any    `json:"id"`
	DisplayName string `json:"display_name"`
	Lines       any    `json:"lines"`
}

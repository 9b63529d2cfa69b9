package model

// SubmitRequest is the bridge request to send or edit a message.
type SubmitRequest struct {
	Text string `json:"text"`
}

// ReplyResponse is returned after a send settles.
type ReplyResponse struct {
	Reply  *Message      `json:"reply"`
	Status SessionStatus `json:"status"`
}

// PreferencesResponse lists the accumulated preference signals.
type PreferencesResponse struct {
	Preferences Preferences `json:"preferences"`
}

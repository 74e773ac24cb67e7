package audit

import "time"

// Action names a recorded step of the check-in and voting pipeline or an
// administrative change to the roll.
type Action string

const (
	ActionOTPRequested     Action = "otp_requested"
	ActionOTPVerified      Action = "otp_verified"
	ActionOTPRejected      Action = "otp_rejected"
	ActionFaceVerified     Action = "face_verified"
	ActionFaceRejected     Action = "face_rejected"
	ActionTicketIssued     Action = "ticket_issued"
	ActionTicketCompleted  Action = "ticket_completed"
	ActionQueueCleared     Action = "queue_cleared"
	ActionVoteCast         Action = "vote_cast"
	ActionVoteRejected     Action = "vote_rejected"
	ActionVoterRegistered  Action = "voter_registered"
	ActionVoterCreated     Action = "voter_created_by_admin"
	ActionVoterApproved    Action = "voter_approved"
	ActionVoterFlagged     Action = "voter_flagged"
	ActionCandidateCreated Action = "candidate_created"
	ActionFeedbackReceived Action = "feedback_received"
)

// Event is emitted from domain logic to capture key actions. It stays
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Action    Action            `json:"action"`
	VoterID   string            `json:"voterId,omitempty"`
	Actor     string            `json:"actor,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

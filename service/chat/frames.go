package chat

import (
	"encoding/json"
	"time"

	chatmodel "MeetChat/module/chat/model"
	"MeetChat/tools/decode"
	"MeetChat/tools/errs"

	pkgerrors "github.com/pkg/errors"
)

// Kind is the closed set of inbound frame discriminators. The dispatcher is
// the single branch point on it; adding a kind means a new constant, a new
// handler registration, and nothing else.
type Kind string

const (
	KindSendMessage  Kind = "send_message"
	KindTyping       Kind = "is_typing"
	KindInitiateCall Kind = "initiate_call"
	KindAcceptCall   Kind = "accept_call"
	KindDeclineCall  Kind = "decline_call"
	KindCancelCall   Kind = "cancel_call"
	KindBusy         Kind = "busy"
	KindMarkRead     Kind = "mark_read"
)

func (k Kind) Valid() bool {
	switch k {
	case KindSendMessage, KindTyping, KindInitiateCall, KindAcceptCall,
		KindDeclineCall, KindCancelCall, KindBusy, KindMarkRead:
		return true
	}
	return false
}

// Outbound discriminators.
const (
	OutChatMessage   = "chat_message"
	OutTypingStatus  = "typing_status"
	OutIncomingCall  = "incoming_call"
	OutCallAccepted  = "call_accepted"
	OutCallDeclined  = "call_declined"
	OutCallCancelled = "call_cancelled"
	OutBusy          = "busy"
	OutNotification  = "notification"
	OutError         = "error"
)

// Frame is a parsed inbound envelope; the payload stays a map until the
// handler decodes it into its typed shape.
type Frame struct {
	Kind    Kind
	Payload map[string]any
}

// ParseFrame decodes raw JSON and validates the discriminator. Unknown or
// missing type is a protocol error; the connection stays open.
func ParseFrame(raw []byte) (*Frame, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errs.ErrProtocol.WrapMsg("malformed frame: " + err.Error())
	}
	t, _ := m["type"].(string)
	k := Kind(t)
	if !k.Valid() {
		return nil, errs.ErrProtocol.WrapMsg("unknown frame type " + t)
	}
	return &Frame{Kind: k, Payload: m}, nil
}

// ---- typed payloads ----

type SendMessagePayload struct {
	RecipientID string `json:"recipient_id"`
	Message     string `json:"message"`
}

type TypingPayload struct {
	RecipientID string `json:"recipient_id"`
	IsTyping    bool   `json:"is_typing"`
}

type CallPayload struct {
	OtherPersonID        string  `json:"otherPersonId"`
	MeetingLink          string  `json:"meetingLink"`
	OtherPersonAvatarURL *string `json:"otherPersonAvatarUrl"`
	OtherPersonName      string  `json:"otherPersonName"`
}

func (f *Frame) DecodeSendMessage() (*SendMessagePayload, error) {
	p, err := decode.DecodeMap[SendMessagePayload](f.Payload)
	if err != nil {
		return nil, errs.ErrProtocol.WrapMsg(err.Error())
	}
	return p, nil
}

func (f *Frame) DecodeTyping() (*TypingPayload, error) {
	p, err := decode.DecodeMap[TypingPayload](f.Payload)
	if err != nil {
		return nil, errs.ErrProtocol.WrapMsg(err.Error())
	}
	return p, nil
}

func (f *Frame) DecodeCall() (*CallPayload, error) {
	p, err := decode.DecodeMap[CallPayload](f.Payload)
	if err != nil {
		return nil, errs.ErrProtocol.WrapMsg(err.Error())
	}
	return p, nil
}

// ---- outbound builders ----

func marshal(m map[string]any) []byte {
	b, _ := json.Marshal(m)
	return b
}

// BuildChatMessage renders a committed message for one viewer. isSent is
// relative to the receiving connection's owner, so the sender's own sessions
// and the recipient's sessions get different payloads.
func BuildChatMessage(m *chatmodel.Message, viewer string) []byte {
	return marshal(map[string]any{
		"type": OutChatMessage,
		"message": map[string]any{
			"id":       m.ID,
			"content":  m.Content,
			"isRead":   m.IsRead,
			"isSent":   m.SenderID == viewer,
			"sentDate": m.Timestamp.Format(time.RFC3339),
		},
	})
}

func BuildTypingStatus(fromID string, isTyping bool) []byte {
	return marshal(map[string]any{
		"type":      OutTypingStatus,
		"user_id":   fromID,
		"is_typing": isTyping,
	})
}

// BuildCallFrame relays a signaling payload unchanged except for the
// attached initiator id.
func BuildCallFrame(out, callerID string, p *CallPayload) []byte {
	m := map[string]any{
		"type":     out,
		"callerId": callerID,
	}
	if out == OutIncomingCall {
		m["meetingLink"] = p.MeetingLink
		m["otherPersonAvatarUrl"] = p.OtherPersonAvatarURL
		m["otherPersonName"] = p.OtherPersonName
	}
	return marshal(m)
}

func BuildNotification(unread int64) []byte {
	return marshal(map[string]any{
		"type":         OutNotification,
		"unread_count": unread,
	})
}

// BuildErrorFrame maps an error to a wire error frame, exposing the code but
// not internal detail.
func BuildErrorFrame(err error) []byte {
	code, msg := errs.ErrInternal.Code, errs.ErrInternal.Msg
	var ce *errs.CodeError
	if pkgerrors.As(err, &ce) {
		code, msg = ce.Code, ce.Msg
	}
	return marshal(map[string]any{
		"type":    OutError,
		"code":    code,
		"message": msg,
	})
}

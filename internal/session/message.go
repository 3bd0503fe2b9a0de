package session

// Sender 标识消息的发送方
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message 是聊天记录中的一条消息
type Message struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// Label 返回界面上显示的发送方名称
func (m Message) Label() string {
	if m.Sender == SenderUser {
		return "You"
	}
	return "Assistant"
}

const (
	GreetingText = "Hi! Upload a medical report image to get started."

	uploadProcessingText = "Extracting text from the uploaded report..."
	uploadSuccessText    = "Report uploaded and text extracted! You can now ask questions about the report."
	uploadFailedPrefix   = "Sorry, OCR failed: "
	uploadRejectedPrefix = "Sorry, that file can't be uploaded: "
	uploadNetworkText    = "Sorry, there was a network error during OCR."
	askFailedPrefix      = "Sorry, there was an error: "
	askNetworkText       = "Sorry, there was a network error."
)

func greeting() Message {
	return Message{Sender: SenderAssistant, Text: GreetingText}
}

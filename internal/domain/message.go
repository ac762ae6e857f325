package domain

// File is an attachment on a chat message (email export or HTML notice).
type File struct {
	ID          string
	Name        string
	Title       string
	FileType    string
	PlainText   string
	DownloadURL string
	Created     int64
}

// RawMessage is a chat message as delivered by the transport.
type RawMessage struct {
	TS      string
	Channel string
	User    string
	Text    string
	Files   []File
}

// Attachment returns the first attached file, if any.
func (m RawMessage) Attachment() (File, bool) {
	if len(m.Files) == 0 {
		return File{}, false
	}
	return m.Files[0], true
}

// DedupeKey is the message identity used by the dedupe cache.
func (m RawMessage) DedupeKey() string { return "message_" + m.TS }

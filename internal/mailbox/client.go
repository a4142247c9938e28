package mailbox

import (
	"fmt"
	"io"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
)

// Session is the slice of an IMAP session the scanner needs. The concrete
// client and the test mocks both satisfy it.
type Session interface {
	// SearchUnseen returns the UIDs of unread messages in INBOX,
	// oldest first (server order).
	SearchUnseen() ([]uint32, error)
	// FetchBody returns the plain-text body of one message, or "" when
	// the message carries no text/plain part.
	FetchBody(uid uint32) (string, error)
	// MarkSeen flags the message as read so it is not searched again.
	MarkSeen(uid uint32) error
	// Close logs out and releases the connection.
	Close() error
}

// Dialer opens a fresh authenticated Session per scan.
type Dialer func() (Session, error)

// NewDialer returns a Dialer for an IMAPS endpoint. Missing credentials
// surface as an error on first dial, not at construction.
func NewDialer(addr, user, password string) Dialer {
	return func() (Session, error) {
		if user == "" || password == "" {
			return nil, fmt.Errorf("EMAIL_ID or EMAIL_PASSWORD missing from environment")
		}
		c, err := imapclient.DialTLS(addr, nil)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		if err := c.Login(user, password); err != nil {
			c.Logout()
			return nil, fmt.Errorf("login: %w", err)
		}
		if _, err := c.Select("INBOX", false); err != nil {
			c.Logout()
			return nil, fmt.Errorf("select inbox: %w", err)
		}
		return &imapSession{c: c}, nil
	}
}

type imapSession struct {
	c *imapclient.Client
}

func (s *imapSession) SearchUnseen() ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := s.c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search unseen: %w", err)
	}
	return uids, nil
}

func (s *imapSession) FetchBody(uid uint32) (string, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	messages := make(chan *imap.Message, 1)
	if err := s.c.UidFetch(seqset, []imap.FetchItem{section.FetchItem()}, messages); err != nil {
		return "", fmt.Errorf("fetch %d: %w", uid, err)
	}
	msg := <-messages
	if msg == nil {
		return "", fmt.Errorf("fetch %d: no message returned", uid)
	}
	body := msg.GetBody(section)
	if body == nil {
		return "", nil
	}
	return extractPlainText(body)
}

// extractPlainText walks the MIME structure and returns the first
// text/plain part, mirroring how payment notifications are laid out.
func extractPlainText(r io.Reader) (string, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return "", fmt.Errorf("parse message: %w", err)
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("walk parts: %w", err)
		}
		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		mediaType, _, _ := header.ContentType()
		if mediaType != "text/plain" {
			continue
		}
		b, err := io.ReadAll(part.Body)
		if err != nil {
			return "", fmt.Errorf("read body: %w", err)
		}
		return string(b), nil
	}
}

func (s *imapSession) MarkSeen(uid uint32) error {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := s.c.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("mark seen %d: %w", uid, err)
	}
	return nil
}

func (s *imapSession) Close() error {
	return s.c.Logout()
}

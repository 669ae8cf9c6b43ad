package models

import "strings"

// Interactive list limits imposed by WhatsApp.
const (
	MaxListRows           = 10
	MaxListRowTitleLength = 24
	MaxListRowDescLength  = 72
	MaxListButtonLength   = 20
)

// Item is a catalog entry the customer can order.
type Item struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Price       string `json:"price" yaml:"price"` // display string, e.g. "Bs. 6"
	Description string `json:"description,omitempty" yaml:"description"`
}

// Category groups catalog items under a browsable sub-menu.
type Category struct {
	Key      string   `json:"key" yaml:"key"`
	Title    string   `json:"title" yaml:"title"`
	Shortcut string   `json:"shortcut" yaml:"shortcut"` // numeric main-menu option
	Keywords []string `json:"keywords,omitempty" yaml:"keywords"`
	Items    []Item   `json:"items" yaml:"items"`
}

// ListRow is one selectable row of an interactive list.
type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ListSection groups rows of an interactive list.
type ListSection struct {
	Title string    `json:"title,omitempty"`
	Rows  []ListRow `json:"rows"`
}

// ListMessage is the rich rendering of a reply, used for menus and categories.
type ListMessage struct {
	Header   string        `json:"header,omitempty"`
	Body     string        `json:"body"`
	Footer   string        `json:"footer,omitempty"`
	Button   string        `json:"button"`
	Sections []ListSection `json:"sections"`
}

// Reply is what the bot answers for one inbound message. Text is always set and
// is the plain fallback of List when a rich rendering exists.
type Reply struct {
	Text string       `json:"text"`
	List *ListMessage `json:"list,omitempty"`
}

// IsEmpty reports whether there is nothing to send.
func (r Reply) IsEmpty() bool {
	return strings.TrimSpace(r.Text) == ""
}

// Prepend returns a copy of the reply with note placed before the text and the list body.
func (r Reply) Prepend(note string) Reply {
	out := Reply{Text: note + r.Text}
	if r.List != nil {
		list := *r.List
		list.Body = note + list.Body
		out.List = &list
	}
	return out
}

// TruncateRunes shortens s to at most n runes.
func TruncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Package i18n implements the translation catalog model: a PO-file subset
// parser and writer, source message extraction, dummy-locale generation, and
// compilation into the JSON form the runtime loads.
package i18n

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Message is one translatable entry in a catalog.
type Message struct {
	ID         string
	Str        string
	Comments   []string
	References []string
}

// Catalog holds the messages for one locale. The zero-ID message is the PO
// header and is maintained separately.
type Catalog struct {
	Locale   string
	Header   map[string]string
	messages []*Message
	byID     map[string]*Message
}

// NewCatalog creates an empty catalog for a locale. The locale must be a
// well-formed BCP 47 tag.
func NewCatalog(locale string) (*Catalog, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("i18n: invalid locale %q: %w", locale, err)
	}
	return &Catalog{
		Locale: tag.String(),
		Header: map[string]string{
			"Content-Type": "text/plain; charset=UTF-8",
			"Language":     tag.String(),
		},
		byID: map[string]*Message{},
	}, nil
}

// Len returns the number of messages, excluding the header.
func (c *Catalog) Len() int {
	return len(c.messages)
}

// Messages returns the catalog entries in insertion order.
func (c *Catalog) Messages() []Message {
	out := make([]Message, len(c.messages))
	for i, msg := range c.messages {
		out[i] = *msg
	}
	return out
}

// Lookup returns the message for an ID.
func (c *Catalog) Lookup(id string) (Message, bool) {
	msg, ok := c.byID[id]
	if !ok {
		return Message{}, false
	}
	return *msg, true
}

// Add inserts or replaces a message.
func (c *Catalog) Add(msg Message) error {
	if msg.ID == "" {
		return fmt.Errorf("i18n: message id is empty")
	}
	if existing, ok := c.byID[msg.ID]; ok {
		*existing = msg
		return nil
	}
	stored := msg
	c.messages = append(c.messages, &stored)
	if c.byID == nil {
		c.byID = map[string]*Message{}
	}
	c.byID[msg.ID] = &stored
	return nil
}

// Merge updates the catalog against a template: template messages keep any
// existing translation, messages absent from the template are dropped.
// Returns how many entries are new (untranslated additions).
func (c *Catalog) Merge(template *Catalog) int {
	added := 0
	merged := make([]*Message, 0, template.Len())
	byID := make(map[string]*Message, template.Len())
	for _, tmplMsg := range template.messages {
		entry := &Message{
			ID:         tmplMsg.ID,
			Comments:   append([]string{}, tmplMsg.Comments...),
			References: append([]string{}, tmplMsg.References...),
		}
		if existing, ok := c.byID[tmplMsg.ID]; ok {
			entry.Str = existing.Str
		} else {
			added++
		}
		merged = append(merged, entry)
		byID[entry.ID] = entry
	}
	c.messages = merged
	c.byID = byID
	return added
}

// Untranslated returns the IDs with empty translations, sorted.
func (c *Catalog) Untranslated() []string {
	var ids []string
	for _, msg := range c.messages {
		if msg.Str == "" {
			ids = append(ids, msg.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// StampRevision records the catalog generation time in the header.
func (c *Catalog) StampRevision(now time.Time) {
	if c.Header == nil {
		c.Header = map[string]string{}
	}
	c.Header["PO-Revision-Date"] = now.UTC().Format("2006-01-02 15:04-0700")
}

// ParsePO reads a catalog from PO-format input. Plural forms and obsolete
// entries are not supported; unknown directives are skipped.
func ParsePO(locale string, r io.Reader) (*Catalog, error) {
	catalog, err := NewCatalog(locale)
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		current  Message
		inMsgstr bool
		sawMsgid bool
		lineNo   int
	)
	flush := func() error {
		if !sawMsgid {
			return nil
		}
		if current.ID == "" {
			// header entry
			parseHeader(catalog, current.Str)
		} else if err := catalog.Add(current); err != nil {
			return err
		}
		current = Message{}
		inMsgstr = false
		sawMsgid = false
		return nil
	}
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			if err := flush(); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, "#:"):
			current.References = append(current.References, strings.TrimSpace(line[2:]))
		case strings.HasPrefix(line, "#"):
			current.Comments = append(current.Comments, strings.TrimSpace(strings.TrimPrefix(line, "#")))
		case strings.HasPrefix(line, "msgid "):
			if sawMsgid {
				if err := flush(); err != nil {
					return nil, err
				}
			}
			value, err := unquotePO(strings.TrimPrefix(line, "msgid "))
			if err != nil {
				return nil, fmt.Errorf("i18n: line %d: %w", lineNo, err)
			}
			current.ID = value
			sawMsgid = true
			inMsgstr = false
		case strings.HasPrefix(line, "msgstr "):
			value, err := unquotePO(strings.TrimPrefix(line, "msgstr "))
			if err != nil {
				return nil, fmt.Errorf("i18n: line %d: %w", lineNo, err)
			}
			current.Str = value
			inMsgstr = true
		case strings.HasPrefix(line, `"`):
			value, err := unquotePO(line)
			if err != nil {
				return nil, fmt.Errorf("i18n: line %d: %w", lineNo, err)
			}
			if inMsgstr {
				current.Str += value
			} else if sawMsgid {
				current.ID += value
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("i18n: read catalog: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// WritePO renders the catalog in PO format.
func (c *Catalog) WritePO(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, `msgid ""`)
	fmt.Fprintf(bw, "msgstr %s\n", quotePO(renderHeader(c.Header)))
	for _, msg := range c.messages {
		fmt.Fprintln(bw)
		for _, comment := range msg.Comments {
			fmt.Fprintf(bw, "# %s\n", comment)
		}
		for _, ref := range msg.References {
			fmt.Fprintf(bw, "#: %s\n", ref)
		}
		fmt.Fprintf(bw, "msgid %s\n", quotePO(msg.ID))
		fmt.Fprintf(bw, "msgstr %s\n", quotePO(msg.Str))
	}
	return bw.Flush()
}

func parseHeader(catalog *Catalog, header string) {
	for _, line := range strings.Split(header, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		if catalog.Header == nil {
			catalog.Header = map[string]string{}
		}
		catalog.Header[key] = value
	}
}

func renderHeader(header map[string]string) string {
	if len(header) == 0 {
		return ""
	}
	keys := make([]string, 0, len(header))
	for key := range header {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, key := range keys {
		sb.WriteString(key)
		sb.WriteString(": ")
		sb.WriteString(header[key])
		sb.WriteString("\n")
	}
	return sb.String()
}

func quotePO(value string) string {
	return strconv.Quote(value)
}

func unquotePO(value string) (string, error) {
	value = strings.TrimSpace(value)
	out, err := strconv.Unquote(value)
	if err != nil {
		return "", fmt.Errorf("malformed string %s", value)
	}
	return out, nil
}

package data

import (
	"strings"
	"time"
)

// Revision keys that are not backups.
const (
	RevisionCurrent = "current"
	RevisionDraft   = "draft"
)

// NoParent is the parent id of a top-level message.
const NoParent = -1

// SaveMode selects how ModifyPage stores new content.
type SaveMode int

const (
	// SaveNormal overwrites the current revision.
	SaveNormal SaveMode = iota
	// SaveBackup copies the current revision to a new backup before overwriting it.
	SaveBackup
	// SaveDraft stores an unpublished draft and leaves the current revision alone.
	SaveDraft
)

func (m SaveMode) String() string {
	switch m {
	case SaveNormal:
		return "normal"
	case SaveBackup:
		return "backup"
	case SaveDraft:
		return "draft"
	default:
		return "unknown"
	}
}

// ParseSaveMode converts the textual form of a SaveMode. Empty means SaveBackup.
func ParseSaveMode(s string) (SaveMode, bool) {
	switch strings.ToLower(s) {
	case "", "backup":
		return SaveBackup, true
	case "normal":
		return SaveNormal, true
	case "draft":
		return SaveDraft, true
	default:
		return SaveNormal, false
	}
}

// NamespaceInfo describes a namespace. The root namespace has an empty name
// and is never stored.
type NamespaceInfo struct {
	Name string `json:"name"`
	// DefaultPage is the full name of the namespace's default page, if any.
	DefaultPage string `json:"defaultPage,omitempty"`
}

// PageInfo is the name-indexed metadata row of a page.
type PageInfo struct {
	FullName     string    `json:"fullName"`
	PageID       string    `json:"pageId"`
	CreationTime time.Time `json:"creationTime"`
}

// Namespace returns the namespace part of the page's full name.
func (p *PageInfo) Namespace() string {
	ns, _ := SplitFullName(p.FullName)
	return ns
}

// LocalName returns the page name without its namespace.
func (p *PageInfo) LocalName() string {
	_, name := SplitFullName(p.FullName)
	return name
}

// PageContent is one revision of a page.
type PageContent struct {
	Title        string    `json:"title"`
	User         string    `json:"user"`
	LastModified time.Time `json:"lastModified"`
	Comment      string    `json:"comment,omitempty"`
	Content      string    `json:"content"`
	Keywords     []string  `json:"keywords,omitempty"`
	Description  string    `json:"description,omitempty"`
}

// CategoryInfo is a category and the unordered set of pages bound to it.
type CategoryInfo struct {
	FullName string   `json:"fullName"`
	Pages    NameList `json:"pages"`
}

// Namespace returns the namespace part of the category's full name.
func (c *CategoryInfo) Namespace() string {
	ns, _ := SplitFullName(c.FullName)
	return ns
}

// NavigationPath is an ordered list of pages defining a reading order.
type NavigationPath struct {
	FullName string   `json:"fullName"`
	Pages    NameList `json:"pages"`
}

// Namespace returns the namespace part of the path's full name.
func (n *NavigationPath) Namespace() string {
	ns, _ := SplitFullName(n.FullName)
	return ns
}

// Message is a discussion message. Replies are populated when a tree is read.
type Message struct {
	ID       int        `json:"id"`
	Username string     `json:"username"`
	Subject  string     `json:"subject"`
	DateTime time.Time  `json:"dateTime"`
	Body     string     `json:"body"`
	Replies  []*Message `json:"replies,omitempty"`
}

// Snippet is a named piece of reusable markup.
type Snippet struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ContentTemplate is a named page skeleton.
type ContentTemplate struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// WordLocation is where in a document a word occurs.
type WordLocation string

const (
	LocationTitle    WordLocation = "title"
	LocationKeywords WordLocation = "keywords"
	LocationContent  WordLocation = "content"
)

// WordMapping is one occurrence of a word in an indexed document, with enough
// document metadata to describe the document without another lookup.
type WordMapping struct {
	Word           string
	DocumentName   string
	Location       WordLocation
	WordIndex      int
	FirstCharIndex int
	DocumentTitle  string
	TypeTag        string
	DateTime       time.Time
}

// FullName joins a namespace and a local name. Root names are unqualified.
func FullName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// SplitFullName returns the namespace and local name of a full name.
func SplitFullName(fullName string) (namespace, name string) {
	if i := strings.Index(fullName, "."); i >= 0 {
		return fullName[:i], fullName[i+1:]
	}
	return "", fullName
}

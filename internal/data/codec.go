package data

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-wiki-store/internal/table"
)

// Logical table names, one per entity kind.
const (
	TableNamespaces       = "Namespaces"
	TableCategories       = "Categories"
	TablePagesInfo        = "PagesInfo"
	TablePagesContents    = "PagesContents"
	TableMessages         = "Messages"
	TableNavigationPaths  = "NavigationPaths"
	TableSnippets         = "Snippets"
	TableContentTemplates = "ContentTemplates"
	TableIndexWordMapping = "IndexWordMapping"
)

// Tables lists every table the store needs.
var Tables = []string{
	TableNamespaces,
	TableCategories,
	TablePagesInfo,
	TablePagesContents,
	TableMessages,
	TableNavigationPaths,
	TableSnippets,
	TableContentTemplates,
	TableIndexWordMapping,
}

// Field names.
const (
	fieldDefaultPage    = "defaultPage"
	fieldNamespace      = "namespace"
	fieldPageList       = "pageList"
	fieldCreationTime   = "creationTime"
	fieldPageID         = "pageId"
	fieldTitle          = "title"
	fieldUser           = "user"
	fieldLastModified   = "lastModified"
	fieldComment        = "comment"
	fieldContent        = "content"
	fieldKeywords       = "keywords"
	fieldDescription    = "description"
	fieldUsername       = "username"
	fieldSubject        = "subject"
	fieldDateTime       = "dateTime"
	fieldBody           = "body"
	fieldParentID       = "parentId"
	fieldWord           = "word"
	fieldDocumentName   = "documentName"
	fieldFirstCharIndex = "firstCharIndex"
	fieldWordIndex      = "wordIndex"
	fieldLocation       = "location"
	fieldDocumentTitle  = "documentTitle"
	fieldTypeTag        = "typeTag"
)

// FieldWord is the name of the word field of a word mapping row.
const FieldWord = fieldWord

// FieldDocumentName is the name of the document field of a word mapping row.
const FieldDocumentName = fieldDocumentName

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// NamespaceEntity encodes a namespace row of a wiki.
func NamespaceEntity(wiki string, ns *NamespaceInfo) *table.Entity {
	e := table.NewEntity(wiki, ns.Name)
	e.Fields[fieldDefaultPage] = ns.DefaultPage
	return e
}

// NamespaceFromEntity decodes a namespace row.
func NamespaceFromEntity(e *table.Entity) *NamespaceInfo {
	return &NamespaceInfo{Name: e.RowKey, DefaultPage: e.Fields[fieldDefaultPage]}
}

// PageEntity encodes the name-indexed metadata row of a page.
func PageEntity(wiki string, p *PageInfo) *table.Entity {
	e := table.NewEntity(wiki, p.FullName)
	e.Fields[fieldNamespace] = p.Namespace()
	e.Fields[fieldCreationTime] = formatTime(p.CreationTime)
	e.Fields[fieldPageID] = p.PageID
	return e
}

// PageFromEntity decodes a page metadata row.
func PageFromEntity(e *table.Entity) (*PageInfo, error) {
	created, err := parseTime(e.Fields[fieldCreationTime])
	if err != nil {
		return nil, fmt.Errorf("page %s: bad creation time: %w", e.RowKey, err)
	}
	if e.Fields[fieldPageID] == "" {
		return nil, fmt.Errorf("page %s: missing page id", e.RowKey)
	}
	return &PageInfo{FullName: e.RowKey, PageID: e.Fields[fieldPageID], CreationTime: created}, nil
}

// BackupKey returns the revision key of backup number n.
func BackupKey(n int) string {
	return strconv.Itoa(n)
}

// ParseBackupKey returns the backup number of a revision key, or false for
// the current and draft revisions.
func ParseBackupKey(key string) (int, bool) {
	if key == RevisionCurrent || key == RevisionDraft {
		return 0, false
	}
	n, err := strconv.Atoi(key)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ContentEntity encodes a revision row, partitioned by page id.
func ContentEntity(pageID, revisionKey string, c *PageContent) *table.Entity {
	e := table.NewEntity(pageID, revisionKey)
	e.Fields[fieldTitle] = c.Title
	e.Fields[fieldUser] = c.User
	e.Fields[fieldLastModified] = formatTime(c.LastModified)
	e.Fields[fieldComment] = c.Comment
	e.Fields[fieldContent] = c.Content
	e.Fields[fieldKeywords] = NameList(c.Keywords).String()
	e.Fields[fieldDescription] = c.Description
	return e
}

// ContentFromEntity decodes a revision row.
func ContentFromEntity(e *table.Entity) (*PageContent, error) {
	modified, err := parseTime(e.Fields[fieldLastModified])
	if err != nil {
		return nil, fmt.Errorf("revision %s/%s: bad modification time: %w", e.PartitionKey, e.RowKey, err)
	}
	return &PageContent{
		Title:        e.Fields[fieldTitle],
		User:         e.Fields[fieldUser],
		LastModified: modified,
		Comment:      e.Fields[fieldComment],
		Content:      e.Fields[fieldContent],
		Keywords:     []string(ParseNameList(e.Fields[fieldKeywords])),
		Description:  e.Fields[fieldDescription],
	}, nil
}

// CategoryEntity encodes a category row.
func CategoryEntity(wiki string, c *CategoryInfo) *table.Entity {
	e := table.NewEntity(wiki, c.FullName)
	e.Fields[fieldNamespace] = c.Namespace()
	e.Fields[fieldPageList] = c.Pages.String()
	return e
}

// CategoryFromEntity decodes a category row.
func CategoryFromEntity(e *table.Entity) *CategoryInfo {
	return &CategoryInfo{FullName: e.RowKey, Pages: ParseNameList(e.Fields[fieldPageList])}
}

// NavigationPathEntity encodes a navigation path row.
func NavigationPathEntity(wiki string, n *NavigationPath) *table.Entity {
	e := table.NewEntity(wiki, n.FullName)
	e.Fields[fieldNamespace] = n.Namespace()
	e.Fields[fieldPageList] = n.Pages.String()
	return e
}

// NavigationPathFromEntity decodes a navigation path row.
func NavigationPathFromEntity(e *table.Entity) *NavigationPath {
	return &NavigationPath{FullName: e.RowKey, Pages: ParseNameList(e.Fields[fieldPageList])}
}

// MessageEntity encodes a message row. Replies are not encoded; the tree is
// kept through parentID.
func MessageEntity(pageID string, m *Message, parentID int) *table.Entity {
	e := table.NewEntity(pageID, strconv.Itoa(m.ID))
	e.Fields[fieldUsername] = m.Username
	e.Fields[fieldSubject] = m.Subject
	e.Fields[fieldDateTime] = formatTime(m.DateTime)
	e.Fields[fieldBody] = m.Body
	e.Fields[fieldParentID] = strconv.Itoa(parentID)
	return e
}

// MessageFromEntity decodes a message row and returns its parent id.
func MessageFromEntity(e *table.Entity) (*Message, int, error) {
	id, err := strconv.Atoi(e.RowKey)
	if err != nil {
		return nil, 0, fmt.Errorf("message %s/%s: bad id: %w", e.PartitionKey, e.RowKey, err)
	}
	parent, err := strconv.Atoi(e.Fields[fieldParentID])
	if err != nil {
		return nil, 0, fmt.Errorf("message %s/%s: bad parent id: %w", e.PartitionKey, e.RowKey, err)
	}
	dt, err := parseTime(e.Fields[fieldDateTime])
	if err != nil {
		return nil, 0, fmt.Errorf("message %s/%s: bad date: %w", e.PartitionKey, e.RowKey, err)
	}
	return &Message{
		ID:       id,
		Username: e.Fields[fieldUsername],
		Subject:  e.Fields[fieldSubject],
		DateTime: dt,
		Body:     e.Fields[fieldBody],
	}, parent, nil
}

// SnippetEntity encodes a snippet row.
func SnippetEntity(wiki string, s *Snippet) *table.Entity {
	e := table.NewEntity(wiki, s.Name)
	e.Fields[fieldContent] = s.Content
	return e
}

// SnippetFromEntity decodes a snippet row.
func SnippetFromEntity(e *table.Entity) *Snippet {
	return &Snippet{Name: e.RowKey, Content: e.Fields[fieldContent]}
}

// ContentTemplateEntity encodes a content template row.
func ContentTemplateEntity(wiki string, t *ContentTemplate) *table.Entity {
	e := table.NewEntity(wiki, t.Name)
	e.Fields[fieldContent] = t.Content
	return e
}

// ContentTemplateFromEntity decodes a content template row.
func ContentTemplateFromEntity(e *table.Entity) *ContentTemplate {
	return &ContentTemplate{Name: e.RowKey, Content: e.Fields[fieldContent]}
}

// WordMappingKeyPrefix is the row key prefix shared by every word mapping of
// a document.
func WordMappingKeyPrefix(documentName string) string {
	return documentName + "|"
}

// WordMappingKey is the composite row key of a word occurrence.
func WordMappingKey(m *WordMapping) string {
	return strings.Join([]string{m.DocumentName, string(m.Location), strconv.Itoa(m.WordIndex), m.Word}, "|")
}

// WordMappingEntity encodes one word occurrence.
func WordMappingEntity(wiki string, m *WordMapping) *table.Entity {
	e := table.NewEntity(wiki, WordMappingKey(m))
	e.Fields[fieldWord] = m.Word
	e.Fields[fieldDocumentName] = m.DocumentName
	e.Fields[fieldFirstCharIndex] = strconv.Itoa(m.FirstCharIndex)
	e.Fields[fieldWordIndex] = strconv.Itoa(m.WordIndex)
	e.Fields[fieldLocation] = string(m.Location)
	e.Fields[fieldDocumentTitle] = m.DocumentTitle
	e.Fields[fieldTypeTag] = m.TypeTag
	e.Fields[fieldDateTime] = formatTime(m.DateTime)
	return e
}

// WordMappingFromEntity decodes one word occurrence.
func WordMappingFromEntity(e *table.Entity) (*WordMapping, error) {
	first, err := strconv.Atoi(e.Fields[fieldFirstCharIndex])
	if err != nil {
		return nil, fmt.Errorf("word mapping %s: bad char index: %w", e.RowKey, err)
	}
	idx, err := strconv.Atoi(e.Fields[fieldWordIndex])
	if err != nil {
		return nil, fmt.Errorf("word mapping %s: bad word index: %w", e.RowKey, err)
	}
	dt, err := parseTime(e.Fields[fieldDateTime])
	if err != nil {
		return nil, fmt.Errorf("word mapping %s: bad date: %w", e.RowKey, err)
	}
	return &WordMapping{
		Word:           e.Fields[fieldWord],
		DocumentName:   e.Fields[fieldDocumentName],
		Location:       WordLocation(e.Fields[fieldLocation]),
		WordIndex:      idx,
		FirstCharIndex: first,
		DocumentTitle:  e.Fields[fieldDocumentTitle],
		TypeTag:        e.Fields[fieldTypeTag],
		DateTime:       dt,
	}, nil
}

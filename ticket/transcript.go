package ticket

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/JulianoPassing/scc-ticket-hp/lang"
)

const timestampLayout = "02/01/2006 15:04:05"

type Entry struct {
	AuthorTag   string
	AuthorID    string
	Timestamp   time.Time
	Content     string
	Attachments []string
}

// Transcript is the archived record of a closed ticket.
type Transcript struct {
	ChannelName string
	Owner       string
	Closer      string
	Reason      string
	Entries     []Entry
	GeneratedAt time.Time
}

// SortMessages orders messages by creation time, oldest first. Messages
// with equal timestamps keep the order the platform returned them in.
func SortMessages(msgs []*discordgo.Message) []*discordgo.Message {
	sorted := make([]*discordgo.Message, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// Entries converts fetched messages into transcript entries in
// chronological order.
func Entries(msgs []*discordgo.Message, unknown string) []Entry {
	sorted := SortMessages(msgs)
	out := make([]Entry, 0, len(sorted))
	for _, m := range sorted {
		e := Entry{AuthorTag: unknown, Timestamp: m.Timestamp, Content: m.Content}
		if m.Author != nil {
			e.AuthorTag = m.Author.String()
			e.AuthorID = m.Author.ID
		}
		for _, a := range m.Attachments {
			e.Attachments = append(e.Attachments, a.URL)
		}
		out = append(out, e)
	}
	return out
}

var (
	bodyMarkdown     goldmark.Markdown
	bodyMarkdownOnce sync.Once
)

func markdown() goldmark.Markdown {
	bodyMarkdownOnce.Do(func() {
		bodyMarkdown = goldmark.New(
			goldmark.WithExtensions(extension.Strikethrough),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		)
	})
	return bodyMarkdown
}

// renderBody escapes the message text before handing it to goldmark, so
// markup typed by users is shown literally while newlines and Discord
// emphasis survive.
func renderBody(content string) template.HTML {
	if content == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown().Convert([]byte(html.EscapeString(content)), &buf); err != nil {
		return template.HTML(html.EscapeString(content))
	}
	return template.HTML(buf.String())
}

type renderedEntry struct {
	Author      string
	Time        string
	Body        template.HTML
	Attachments []string
}

type transcriptView struct {
	Lang        string
	Title       string
	ChannelName string
	OwnerLabel  string
	Owner       string
	CloserLabel string
	Closer      string
	ReasonLabel string
	Reason      string
	Entries     []renderedEntry
	Empty       string
	Footer      string
}

var transcriptTemplate = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="UTF-8">
<title>{{.Title}} - {{.ChannelName}}</title>
<style>
body { font-family: sans-serif; background: #36393f; color: #dcddde; margin: 2em; }
header h1 { font-size: 1.4em; margin-bottom: 0.2em; }
.meta { color: #b9bbbe; }
.reason { border-left: 4px solid #ed4245; background: #2f3136; padding: 0.6em 1em; margin: 1em 0; }
ol.messages { list-style: none; padding: 0; }
.message { padding: 0.5em 0; border-bottom: 1px solid #40444b; }
.author { font-weight: bold; color: #fff; }
.time { color: #72767d; font-size: 0.85em; margin-left: 0.5em; }
.body p { margin: 0.3em 0; }
footer { margin-top: 2em; color: #72767d; font-size: 0.85em; }
</style>
</head>
<body>
<header>
<h1>{{.Title}}: #{{.ChannelName}}</h1>
<p class="meta">{{.OwnerLabel}}: {{.Owner}} · {{.CloserLabel}}: {{.Closer}}</p>
</header>
{{if .Reason}}<section class="reason"><strong>{{.ReasonLabel}}:</strong> {{.Reason}}</section>
{{end}}<ol class="messages">
{{range .Entries}}<li class="message"><span class="author">{{.Author}}</span><span class="time">{{.Time}}</span>
<div class="body">{{.Body}}</div>{{range .Attachments}}
<div class="attachment"><a href="{{.}}">{{.}}</a></div>{{end}}
</li>
{{else}}<li class="message">{{.Empty}}</li>
{{end}}</ol>
<footer>{{.Footer}}</footer>
</body>
</html>
`))

// Render writes the transcript as a self-contained HTML document with
// timestamps shown in loc.
func (t *Transcript) Render(w io.Writer, msgs *lang.Catalog, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	view := transcriptView{
		Lang:        msgs.T("transcript.lang"),
		Title:       msgs.T("transcript.title"),
		ChannelName: t.ChannelName,
		OwnerLabel:  msgs.T("transcript.owner"),
		Owner:       t.Owner,
		CloserLabel: msgs.T("transcript.closer"),
		Closer:      t.Closer,
		ReasonLabel: msgs.T("transcript.reason"),
		Reason:      t.Reason,
		Empty:       msgs.T("transcript.empty"),
		Footer: msgs.T("transcript.footer",
			"count", strconv.Itoa(len(t.Entries)),
			"generated", t.GeneratedAt.In(loc).Format(timestampLayout)),
	}
	for _, e := range t.Entries {
		view.Entries = append(view.Entries, renderedEntry{
			Author:      e.AuthorTag,
			Time:        e.Timestamp.In(loc).Format(timestampLayout),
			Body:        renderBody(e.Content),
			Attachments: e.Attachments,
		})
	}
	return transcriptTemplate.Execute(w, view)
}

// WriteFile renders the transcript into a new file under dir and returns
// its path. The caller owns the file and must remove it.
func (t *Transcript) WriteFile(dir string, msgs *lang.Catalog, loc *time.Location) (string, error) {
	safe := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, t.ChannelName)
	name := fmt.Sprintf("transcript-%s-%s.html", safe, uuid.NewString())
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", fmt.Errorf("create transcript: %w", err)
	}
	if err := t.Render(f, msgs, loc); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("render transcript: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close transcript: %w", err)
	}
	return path, nil
}

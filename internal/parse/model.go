package parse

import "time"

type Role int

const (
	RoleUser Role = iota
	RoleAssistant
	RoleTool
	RoleSystem
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	case RoleTool:
		return "tool"
	case RoleSystem:
		return "system"
	}
	return "unknown"
}

// roleOf maps the role spellings seen across dialects onto Role.
func roleOf(s string) (Role, bool) {
	switch s {
	case "user", "human":
		return RoleUser, true
	case "assistant", "model", "ai":
		return RoleAssistant, true
	case "tool", "function":
		return RoleTool, true
	case "system", "developer":
		return RoleSystem, true
	}
	return 0, false
}

type Intent string

const (
	IntentQuestion       Intent = "question"
	IntentRequest        Intent = "request"
	IntentDebugging      Intent = "debugging"
	IntentImplementation Intent = "implementation"
	IntentPlanning       Intent = "planning"
	IntentReview         Intent = "review"
	IntentLearning       Intent = "learning"
	IntentDocumentation  Intent = "documentation"
	IntentGeneral        Intent = "general"
)

type CodeBlock struct {
	Language string // empty when neither hinted nor detected
	Content  string
	Lines    int
}

type LinkKind string

const (
	LinkRepository    LinkKind = "repository"
	LinkDocumentation LinkKind = "documentation"
	LinkFile          LinkKind = "file"
	LinkExternal      LinkKind = "external"
)

type Link struct {
	URL  string
	Kind LinkKind
}

type MentionKind string

const (
	MentionUser MentionKind = "user"
	MentionFile MentionKind = "file"
)

type Mention struct {
	Kind  MentionKind
	Value string
}

// Block is one turn of a conversation. Blocks are built once while
// parsing and never modified afterwards.
type Block struct {
	Seq       int // strictly increasing within a session
	Line      int // 1-based line in the source file
	Role      Role
	Thinking  bool
	Timestamp time.Time
	Text      string
	Tools     []string // tool names invoked by this block

	CodeBlocks []CodeBlock
	Links      []Link
	Mentions   []Mention
	Tokens     []string // distinct lowercased words, first-appearance order
	Topics     []string
	Intent     Intent
}

// Aux is secondary metadata from a terminal session tracker. A nil *Aux
// on a Session means nothing was attached.
type Aux struct {
	Name       string
	Command    string
	Dir        string
	Confidence float64
	SavedAt    time.Time
}

type Session struct {
	ID        string
	Source    string // "claude", "codex" or "generic"
	Path      string
	Size      int64
	ModTime   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	Cwd       string
	GitBranch string
	Title     string

	Blocks []Block

	Lines   int // non-blank lines read
	Skipped int // malformed or oversized lines
	Ignored int // well-formed records that produced no block
	ReadErr error

	Stats    Statistics
	Insights Insights

	Aux *Aux
}

func (s *Session) HasAux() bool {
	return s.Aux != nil
}

type Statistics struct {
	Blocks          int
	UserBlocks      int
	AssistantBlocks int
	ToolBlocks      int
	SystemBlocks    int
	Words           int
	Chars           int
	CodeBlocks      int
	Links           int
	Mentions        int
	ToolCalls       int
	Malformed       int
	Languages       map[string]int
	Duration        time.Duration
	AvgResponse     time.Duration // user turn to next assistant turn
}

type Phase struct {
	Intent Intent
	Start  int // index into Session.Blocks
	End    int // inclusive
}

type TopicScore struct {
	Topic     string
	Mentions  int // blocks tagged with the topic
	Frequency float64
	Relevance float64
}

type Style string

const (
	StyleInquisitive   Style = "inquisitive"
	StyleDirective     Style = "directive"
	StyleCollaborative Style = "collaborative"
	StyleExploratory   Style = "exploratory"
)

type Insights struct {
	Phases         []Phase
	FocusShifts    int
	Topics         []TopicScore
	TasksCompleted int
	ProblemsRaised int
	ProblemsSolved int
	Questions      int
	Collaboration  float64 // 0..10
	CodeQuality    float64 // 0..10
	Style          Style
}

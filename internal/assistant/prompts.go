package assistant

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"
)

//go:embed prompts.toml
var defaultPrompts string

type promptFile struct {
	Chat struct {
		System string `toml:"system"`
	} `toml:"chat"`
	Insight struct {
		System string `toml:"system"`
		User   string `toml:"user"`
	} `toml:"insight"`
	Languages struct {
		Default string            `toml:"default"`
		Aliases map[string]string `toml:"aliases"`
	} `toml:"languages"`
}

// Prompts holds the parsed prompt templates and the insight language table.
type Prompts struct {
	chatSystem    *template.Template
	insightSystem string
	insightUser   *template.Template

	defaultLanguage string
	aliases         map[string]string
	matcher         language.Matcher
	matched         []string
}

type chatPromptData struct {
	Today      string
	Categories string
}

type insightPromptData struct {
	Language string
	Currency string
	Summary  string
}

// DefaultPrompts parses the prompt file compiled into the binary.
func DefaultPrompts() (*Prompts, error) {
	return ParsePrompts(defaultPrompts)
}

// ParsePrompts parses prompt data in TOML form.
func ParsePrompts(data string) (*Prompts, error) {
	var f promptFile
	md, err := toml.Decode(data, &f)
	if err != nil {
		return nil, fmt.Errorf("decode prompts: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("decode prompts: unknown keys %v", undecoded)
	}

	var errs []string
	if strings.TrimSpace(f.Chat.System) == "" {
		errs = append(errs, "chat.system is required")
	}
	if strings.TrimSpace(f.Insight.System) == "" {
		errs = append(errs, "insight.system is required")
	}
	if strings.TrimSpace(f.Insight.User) == "" {
		errs = append(errs, "insight.user is required")
	}
	if strings.TrimSpace(f.Languages.Default) == "" {
		errs = append(errs, "languages.default is required")
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid prompts:\n- %s", strings.Join(errs, "\n- "))
	}

	chatSystem, err := template.New("chat.system").Option("missingkey=error").Parse(strings.TrimSpace(f.Chat.System))
	if err != nil {
		return nil, fmt.Errorf("parse chat.system: %w", err)
	}
	insightUser, err := template.New("insight.user").Option("missingkey=error").Parse(strings.TrimSpace(f.Insight.User))
	if err != nil {
		return nil, fmt.Errorf("parse insight.user: %w", err)
	}

	p := &Prompts{
		chatSystem:      chatSystem,
		insightSystem:   strings.TrimSpace(f.Insight.System),
		insightUser:     insightUser,
		defaultLanguage: f.Languages.Default,
		aliases:         make(map[string]string, len(f.Languages.Aliases)),
	}
	for k, v := range f.Languages.Aliases {
		p.aliases[strings.ToLower(strings.TrimSpace(k))] = v
	}
	p.buildMatcher()
	return p, nil
}

// buildMatcher indexes every alias that is a valid BCP 47 tag. The default language
// comes first so an unmatched tag falls back to it.
func (p *Prompts) buildMatcher() {
	keys := make([]string, 0, len(p.aliases))
	for k := range p.aliases {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		di, dj := p.aliases[keys[i]] == p.defaultLanguage, p.aliases[keys[j]] == p.defaultLanguage
		if di != dj {
			return di
		}
		return keys[i] < keys[j]
	})

	var tags []language.Tag
	for _, k := range keys {
		tag, err := language.Parse(k)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		p.matched = append(p.matched, p.aliases[k])
	}
	if len(tags) > 0 {
		p.matcher = language.NewMatcher(tags)
	}
}

// Language maps a user-supplied language hint to a prompt language name. Known aliases
// are looked up first; other BCP 47 tags are matched by base language. Anything else
// yields the default.
func (p *Prompts) Language(hint string) string {
	key := strings.ToLower(strings.TrimSpace(hint))
	if key == "" {
		return p.defaultLanguage
	}
	if name, ok := p.aliases[key]; ok {
		return name
	}
	if p.matcher == nil {
		return p.defaultLanguage
	}
	tag, err := language.Parse(key)
	if err != nil {
		return p.defaultLanguage
	}
	_, idx, conf := p.matcher.Match(tag)
	if conf == language.No {
		return p.defaultLanguage
	}
	return p.matched[idx]
}

// Currency returns the trimmed currency hint, or "none" when it is blank.
func Currency(hint string) string {
	if c := strings.TrimSpace(hint); c != "" {
		return c
	}
	return "none"
}

func (p *Prompts) ChatSystem(data chatPromptData) (string, error) {
	var b strings.Builder
	if err := p.chatSystem.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render chat prompt: %w", err)
	}
	return b.String(), nil
}

func (p *Prompts) InsightSystem() string {
	return p.insightSystem
}

func (p *Prompts) InsightUser(data insightPromptData) (string, error) {
	var b strings.Builder
	if err := p.insightUser.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render insight prompt: %w", err)
	}
	return b.String(), nil
}

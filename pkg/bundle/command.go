package bundle

import (
	"runtime"

	"github.com/stackb/scriptbundles/pkg/scope"
)

// AllPlatforms is the platform name that matches every GOOS.
const AllPlatforms = "all"

// CommandKind distinguishes plain commands from content assists.
type CommandKind int

const (
	KindCommand CommandKind = iota
	KindContentAssist
)

func (k CommandKind) String() string {
	if k == KindContentAssist {
		return "content_assist"
	}
	return "command"
}

// CommandElement is a command contributed by a bundle.  Fields are assigned
// before the element is added to a bundle and not modified afterwards.
type CommandElement struct {
	member

	Kind       CommandKind
	Scope      string
	Invoke     string
	KeyBinding string
	Trigger    string
	Platforms  []string
}

// NewCommandElement creates a command that runs on all platforms.
func NewCommandElement(name, path string) *CommandElement {
	return &CommandElement{
		member:    newMember(name, path),
		Platforms: []string{AllPlatforms},
	}
}

// NewContentAssistElement creates a content assist command.
func NewContentAssistElement(name, path string) *CommandElement {
	c := NewCommandElement(name, path)
	c.Kind = KindContentAssist
	return c
}

// IsContentAssist reports whether the command is a content assist.
func (c *CommandElement) IsContentAssist() bool {
	return c.Kind == KindContentAssist
}

// ScopeSelector returns the parsed Scope.
func (c *CommandElement) ScopeSelector() *scope.Selector {
	return scope.ParseSelector(c.Scope)
}

// IsExecutable reports whether the command runs on the current GOOS.  An
// empty platform list is treated as "all".
func (c *CommandElement) IsExecutable() bool {
	if len(c.Platforms) == 0 {
		return true
	}
	for _, p := range c.Platforms {
		if p == AllPlatforms || p == runtime.GOOS {
			return true
		}
	}
	return false
}

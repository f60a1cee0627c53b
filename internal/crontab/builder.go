package crontab

import "strings"

// Wildcard is the token rendered for an absent schedule field.
const Wildcard = "*"

// Job is one rendered cron line, including its trailing newline.
type Job string

// Line returns the job without its line terminator.
func (j Job) Line() string { return strings.TrimRight(string(j), "\r\n") }

// Fields holds the five schedule tokens of a cron line. An empty token means
// "absent" and renders as Wildcard; anything else is kept verbatim.
type Fields struct {
	Minute  string
	Hour    string
	Day     string
	Month   string
	Weekday string
}

func (f Fields) normalize() Fields {
	return Fields{
		Minute:  token(f.Minute),
		Hour:    token(f.Hour),
		Day:     token(f.Day),
		Month:   token(f.Month),
		Weekday: token(f.Weekday),
	}
}

// String renders the five fields space-separated.
func (f Fields) String() string {
	n := f.normalize()
	return n.Minute + " " + n.Hour + " " + n.Day + " " + n.Month + " " + n.Weekday
}

// token maps absent to Wildcard. "0" is a real value (midnight, minute zero,
// Sunday) and is never treated as absent.
func token(v string) string {
	if v == "" {
		return Wildcard
	}
	return v
}

// JobAdder receives rendered jobs. *File implements it.
type JobAdder interface {
	AddJob(j Job)
}

// BuilderOption configures NewBuilder.
type BuilderOption func(*Builder)

// WithInvoker sets how SetApplicationCommand re-enters the application.
func WithInvoker(inv Invoker) BuilderOption {
	return func(b *Builder) { b.invoker = inv }
}

// Builder renders cron lines into a JobAdder.
//
// Date fields persist across Add calls: successive Adds without a new
// SetDateFields reuse the previous schedule. Only the command is cleared.
type Builder struct {
	target  JobAdder
	invoker Invoker

	fields  Fields
	command string
}

// NewBuilder returns a Builder that adds to target, with every field Wildcard.
func NewBuilder(target JobAdder, opts ...BuilderOption) *Builder {
	b := &Builder{
		target:  target,
		invoker: SelfInvoker{},
		fields:  Fields{}.normalize(),
	}
	for _, o := range opts {
		if o != nil {
			o(b)
		}
	}
	return b
}

// SetDateFields sets all five schedule tokens. Empty tokens become Wildcard.
// Tokens are not validated; see Lint for an optional check.
func (b *Builder) SetDateFields(minute, hour, day, month, weekday string) *Builder {
	return b.SetFields(Fields{Minute: minute, Hour: hour, Day: day, Month: month, Weekday: weekday})
}

// SetFields is the struct form of SetDateFields.
func (b *Builder) SetFields(f Fields) *Builder {
	b.fields = f.normalize()
	return b
}

// Fields returns the current (normalized) schedule tokens.
func (b *Builder) Fields() Fields { return b.fields }

// SetCommand stores a shell command verbatim. No escaping is performed.
func (b *Builder) SetCommand(command string) *Builder {
	b.command = command
	return b
}

// Command returns the pending command ("" once Add consumed it).
func (b *Builder) Command() string { return b.command }

// SetApplicationCommand composes "<invocation> <commandName> <args...>",
// where the invocation prefix comes from the builder's Invoker.
func (b *Builder) SetApplicationCommand(entryPoint, commandName string, args ...string) *Builder {
	inv := b.invoker
	if inv == nil {
		inv = SelfInvoker{}
	}
	parts := make([]string, 0, 2+len(args))
	if prefix := inv.Invocation(entryPoint); prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, commandName)
	parts = append(parts, args...)
	return b.SetCommand(strings.Join(parts, " "))
}

// Render returns the line for the current fields and command.
// ok is false when no command is set.
func (b *Builder) Render() (j Job, ok bool) {
	if b.command == "" {
		return "", false
	}
	return Job(b.fields.String() + " " + b.command + "\n"), true
}

// Add renders the current entry into the target and clears the command.
// Without a command it does nothing, so repeated Adds never create empty entries.
func (b *Builder) Add() *Builder {
	j, ok := b.Render()
	if !ok {
		return b
	}
	if b.target != nil {
		b.target.AddJob(j)
	}
	b.command = ""
	return b
}

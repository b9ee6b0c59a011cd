package cmd

import (
	"github.com/charmbracelet/huh"
)

// SelectOption is one choice in a select prompt.
type SelectOption[T any] struct {
	Label string
	Value T
}

// Long option lists get type-to-filter.
const filterAbove = 5

// ask runs a single-field form with the key help line visible.
func ask(field huh.Field) error {
	return huh.NewForm(huh.NewGroup(field)).WithShowHelp(true).Run()
}

// promptString reads one line. An empty answer returns defaultVal, which is
// shown as the placeholder.
func promptString(title, description, defaultVal string) (string, error) {
	var v string
	in := huh.NewInput().Title(title).Description(description).Placeholder(defaultVal).Value(&v)
	if err := ask(in); err != nil {
		return "", err
	}
	if v == "" {
		return defaultVal, nil
	}
	return v, nil
}

// promptPassword reads a secret without echoing it.
func promptPassword(title, description string) (string, error) {
	var v string
	in := huh.NewInput().Title(title).Description(description).EchoMode(huh.EchoModePassword).Value(&v)
	if err := ask(in); err != nil {
		return "", err
	}
	return v, nil
}

func promptSelect[T comparable](title string, options []SelectOption[T], defaultIdx int) (T, error) {
	var v T
	opts := make([]huh.Option[T], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o.Label, o.Value).Selected(i == defaultIdx)
	}
	sel := huh.NewSelect[T]().Title(title).Options(opts...).Value(&v).Filtering(len(options) > filterAbove)
	if err := ask(sel); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func promptMultiSelect[T comparable](title, description string, options []SelectOption[T], preselected []T) ([]T, error) {
	picked := make(map[T]bool, len(preselected))
	for _, p := range preselected {
		picked[p] = true
	}
	opts := make([]huh.Option[T], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o.Label, o.Value).Selected(picked[o.Value])
	}

	var v []T
	ms := huh.NewMultiSelect[T]().Title(title).Description(description).Options(opts...).Value(&v).
		Filtering(len(options) > filterAbove)
	if err := ask(ms); err != nil {
		return nil, err
	}
	return v, nil
}

func promptConfirm(title string, defaultYes bool) (bool, error) {
	v := defaultYes
	c := huh.NewConfirm().Title(title).Affirmative("Yes").Negative("No").Value(&v)
	if err := ask(c); err != nil {
		return false, err
	}
	return v, nil
}

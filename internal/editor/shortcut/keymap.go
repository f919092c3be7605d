package shortcut

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the composer bindings. Every entry accepts Ctrl or Cmd.
type KeyMap struct {
	Bold, Italic, Underline, Code key.Binding
	Link, Image                   key.Binding
	NumberedList, BulletList      key.Binding
	Save, Preview, Publish        key.Binding
}

func either(combo string) []string {
	return []string{"ctrl+" + combo, "meta+" + combo}
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Bold:      key.NewBinding(key.WithKeys(either("b")...), key.WithHelp("ctrl/cmd+b", "bold")),
		Italic:    key.NewBinding(key.WithKeys(either("i")...), key.WithHelp("ctrl/cmd+i", "italic")),
		Underline: key.NewBinding(key.WithKeys(either("u")...), key.WithHelp("ctrl/cmd+u", "underline")),
		Code:      key.NewBinding(key.WithKeys(either("e")...), key.WithHelp("ctrl/cmd+e", "inline code")),

		Link:  key.NewBinding(key.WithKeys(either("k")...), key.WithHelp("ctrl/cmd+k", "insert link")),
		Image: key.NewBinding(key.WithKeys(either("shift+i")...), key.WithHelp("ctrl/cmd+shift+i", "insert image")),

		// With shift held, US layouts report the symbol rather than the digit.
		NumberedList: key.NewBinding(key.WithKeys(append(either("shift+7"), either("shift+&")...)...), key.WithHelp("ctrl/cmd+shift+7", "numbered list")),
		BulletList:   key.NewBinding(key.WithKeys(append(either("shift+8"), either("shift+*")...)...), key.WithHelp("ctrl/cmd+shift+8", "bullet list")),

		Save:    key.NewBinding(key.WithKeys(either("s")...), key.WithHelp("ctrl/cmd+s", "save")),
		Preview: key.NewBinding(key.WithKeys(either("shift+p")...), key.WithHelp("ctrl/cmd+shift+p", "preview")),
		Publish: key.NewBinding(key.WithKeys(either("enter")...), key.WithHelp("ctrl/cmd+enter", "publish")),
	}
}

// Actions are the composer operations a KeyMap can trigger.
type Actions struct {
	Bold, Italic, Underline, Code func()
	Link, Image                   func()
	NumberedList, BulletList      func()
	Save, Preview, Publish        func()
}

// Table pairs each binding with its action in a fixed order.
func (km KeyMap) Table(a Actions) []Shortcut {
	return []Shortcut{
		{km.Bold, a.Bold},
		{km.Italic, a.Italic},
		{km.Underline, a.Underline},
		{km.Code, a.Code},
		{km.Link, a.Link},
		{km.Image, a.Image},
		{km.NumberedList, a.NumberedList},
		{km.BulletList, a.BulletList},
		{km.Save, a.Save},
		{km.Preview, a.Preview},
		{km.Publish, a.Publish},
	}
}

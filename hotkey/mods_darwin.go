package hotkey

import xhotkey "golang.design/x/hotkey"

var modByName = map[string]xhotkey.Modifier{
	"ctrl":  xhotkey.ModCtrl,
	"shift": xhotkey.ModShift,
	"alt":   xhotkey.ModOption,
	"super": xhotkey.ModCmd,
}

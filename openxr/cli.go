package openxr

import "fmt"

// verb is one of the four command forms spec §6 names:
// enable-HKLM-64, disable-HKLM-64, enable-HKLM-32, disable-HKLM-32.
type verb struct {
	enable bool
	view   View
}

var verbs = map[string]verb{
	"enable-HKLM-64":  {enable: true, view: View64},
	"disable-HKLM-64": {enable: false, view: View64},
	"enable-HKLM-32":  {enable: true, view: View32},
	"disable-HKLM-32": {enable: false, view: View32},
}

// Run implements the command helper of spec §6: args[0] is one of the
// four verbs above, args[1] is the manifest directory. The verbs only
// name HKLM, matching the literal command forms in spec §6; HKCU is
// reachable programmatically via EnableLayer/DisableLayer directly.
func Run(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("openxr: usage: <%s> <manifest-dir>", verbNames())
	}
	v, ok := verbs[args[0]]
	if !ok {
		return fmt.Errorf("openxr: unknown command %q (want one of %s)", args[0], verbNames())
	}
	return ApplyDirectory(HKLM, v.view, args[1], v.enable)
}

func verbNames() string {
	return "enable-HKLM-64|disable-HKLM-64|enable-HKLM-32|disable-HKLM-32"
}

// Command switch-kneeboards sends a single SwitchKneeboards UserAction (spec §6) to a
// running app instance over the APIEvent mailslot, or a MultiEvent
// batch if an optional positional count argument is given.
package main

import "kneeboard.dev/core/cmd/internal/remote"

func main() {
	remote.Main("SwitchKneeboards")
}

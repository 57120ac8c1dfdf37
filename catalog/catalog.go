// Package catalog supplies pre-built FSM templates and per-vendor
// rollback-inference rules, the external collaborator TemplateCatalog
// described alongside the core session/pool/tx packages.
package catalog

import (
	"github.com/netauto/core/fsm"
)

// CiscoStyle builds the login/enable/config handler used by the Cisco-style
// end-to-end scenarios: enable requires an interactive password, configure
// terminal does not.
func CiscoStyle() (*fsm.Handler, error) {
	states := []fsm.StateSpec{
		{Name: "login", Prompts: []string{`>\s*$`}},
		// config is declared before enable: prompts match in declaration
		// order, and enable's `#\s*$` would otherwise also claim "R1(config)#".
		{Name: "config", Prompts: []string{`\(config\)#\s*$`}},
		{Name: "enable", Prompts: []string{`#\s*$`}},
	}
	edges := []fsm.EdgeSpec{
		{
			From: "login", To: "enable", Command: "enable",
			DynamicInputs: []fsm.DynamicInputSpec{
				{Trigger: `Password:\s*$`, Response: "secret", Sensitive: true},
			},
		},
		{From: "enable", To: "config", Command: "configure terminal"},
	}
	return fsm.New(states, edges, "cisco")
}

// RTXStyle builds the user/administrator handler grounded in the Yamaha
// RTX-family working session's prompt recognition and admin-mode
// authentication flow.
func RTXStyle() (*fsm.Handler, error) {
	states := []fsm.StateSpec{
		{Name: "user", Prompts: []string{`\] >\s*$`}},
		{Name: "administrator", Prompts: []string{`\] #\s*$`}},
	}
	edges := []fsm.EdgeSpec{
		{
			From: "user", To: "administrator", Command: "administrator",
			DynamicInputs: []fsm.DynamicInputSpec{
				{Trigger: `Password:\s*$`, Response: "secret", Sensitive: true},
			},
		},
	}
	return fsm.New(states, edges, "rtx")
}

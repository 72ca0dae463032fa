package models

// Plan is the structured planning response expected from the engine.
// The engine embeds it as a JSON object somewhere in its output; the
// orchestrator extracts it with a first-brace-to-last-brace scan.
type Plan struct {
	Analysis string   `json:"analysis"`
	Steps    []string `json:"steps"`
	Testing  string   `json:"testing"`
	Risks    []string `json:"risks"`
}

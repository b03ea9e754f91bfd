package model

// VisualAsset is one timed entry on the render timeline. Image and video
// assets reference a local file; text assets carry the line to draw and no
// path.
type VisualAsset struct {
	Path     string     `json:"path,omitempty"`
	Type     VisualType `json:"type"`
	Duration float64    `json:"duration"`
	Text     string     `json:"text,omitempty"`
}

// RenderPlan is the fully resolved input to the compositor: one visual asset
// per scene in scene order, one consolidated voiceover track, and the output
// path. BackgroundScorePath is optional.
type RenderPlan struct {
	Title               string        `json:"title"`
	VisualAssets        []VisualAsset `json:"visual_assets"`
	VoiceoverPath       string        `json:"voiceover_path"`
	BackgroundScorePath string        `json:"background_score_path,omitempty"`
	OutputPath          string        `json:"output_path"`
}

// TotalDuration is the sum of per-asset durations. It drives both the video
// length and the audio tempo correction target.
func (p *RenderPlan) TotalDuration() float64 {
	var total float64
	for _, a := range p.VisualAssets {
		total += a.Duration
	}
	return total
}

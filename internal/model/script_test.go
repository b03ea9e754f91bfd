package model

import (
	"strings"
	"testing"
)

func TestDecodeScript_ValidScript(t *testing.T) {
	data := []byte(`{
		"title": "My Reel",
		"scenes": [
			{"scene_number": 2, "script": "second", "scene_type": "media", "asset_keywords": ["b"], "asset_type": "video"},
			{"scene_number": 1, "script": "first", "scene_type": "media", "asset_keywords": ["a"], "asset_type": "image"},
			{"scene_number": 3, "script": "KEY", "scene_type": "text"}
		]
	}`)

	script, err := DecodeScript(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	// scenes come back sorted by scene_number
	for i, sc := range script.Scenes {
		if sc.SceneNumber != i+1 {
			t.Errorf("scene at position %d has number %d", i, sc.SceneNumber)
		}
	}
	if script.Scenes[2].SceneType != SceneTypeText {
		t.Errorf("expected text scene, got %s", script.Scenes[2].SceneType)
	}
}

func TestDecodeScript_AmbiguousAssetTypeNormalizes(t *testing.T) {
	data := []byte(`{
		"title": "t",
		"scenes": [
			{"scene_number": 1, "script": "s", "asset_keywords": ["a"], "asset_type": "image/video"}
		]
	}`)

	script, err := DecodeScript(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if script.Scenes[0].AssetType != AssetTypeVideo {
		t.Errorf("\"image/video\" hint must normalize to video, got %s", script.Scenes[0].AssetType)
	}
}

func TestDecodeScript_Rejections(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"malformed json", `{"title": "t", "scenes": [`},
		{"no title", `{"scenes": [{"scene_number": 1, "script": "s", "asset_keywords": ["a"]}]}`},
		{"no scenes", `{"title": "t", "scenes": []}`},
		{"duplicate scene number", `{"title": "t", "scenes": [
			{"scene_number": 1, "script": "a", "asset_keywords": ["x"]},
			{"scene_number": 1, "script": "b", "asset_keywords": ["y"]}
		]}`},
		{"scene number out of range", `{"title": "t", "scenes": [
			{"scene_number": 7, "script": "a", "asset_keywords": ["x"]}
		]}`},
		{"empty script text", `{"title": "t", "scenes": [
			{"scene_number": 1, "script": "  ", "asset_keywords": ["x"]}
		]}`},
		{"media scene without keywords", `{"title": "t", "scenes": [
			{"scene_number": 1, "script": "a", "scene_type": "media"}
		]}`},
		{"unknown scene type", `{"title": "t", "scenes": [
			{"scene_number": 1, "script": "a", "scene_type": "hologram"}
		]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeScript([]byte(tc.data)); err == nil {
				t.Error("expected decode to fail")
			}
		})
	}
}

func TestSanitizeTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"My Great Reel", "my_great_reel"},
		{"  Spaces  ", "spaces"},
		{"Hack: 50% off!", "hack_50_off"},
		{"???", "untitled"},
		{"", "untitled"},
		{"already_clean-name", "already_clean-name"},
	}

	for _, tc := range cases {
		if got := SanitizeTitle(tc.in); got != tc.want {
			t.Errorf("SanitizeTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPrimaryKeyword(t *testing.T) {
	sc := Scene{AssetKeywords: []string{"city skyline", "other"}}
	if sc.PrimaryKeyword() != "city skyline" {
		t.Errorf("unexpected keyword %q", sc.PrimaryKeyword())
	}

	empty := Scene{}
	if empty.PrimaryKeyword() != "generic" {
		t.Errorf("missing keywords must fall back to generic, got %q", empty.PrimaryKeyword())
	}
}

func TestJobStatusIsTerminal(t *testing.T) {
	terminal := []JobStatus{JobStatusCompleted, JobStatusFailed, JobStatusCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
	for _, s := range []JobStatus{JobStatusPending, JobStatusProcessing} {
		if s.IsTerminal() {
			t.Errorf("%s must not be terminal", s)
		}
	}
}

func TestRenderPlanTotalDuration(t *testing.T) {
	plan := RenderPlan{VisualAssets: []VisualAsset{
		{Duration: 2.5},
		{Duration: 3},
		{Duration: 4.5},
	}}
	if got := plan.TotalDuration(); got != 10 {
		t.Errorf("TotalDuration = %v, want 10", got)
	}
}

func TestSanitizeTitle_CaseFolding(t *testing.T) {
	got := SanitizeTitle("MIXED Case TITLE")
	if got != strings.ToLower(got) {
		t.Errorf("title must be lowercase, got %q", got)
	}
}

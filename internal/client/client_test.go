package client

import (
	"strings"
	"testing"
)

func TestValidateArticleContent(t *testing.T) {
	long := strings.Repeat("real article content ", 40)

	cases := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"valid article", long, false},
		{"empty", "", true},
		{"too short", "only fifty characters of text here, not enough at all", true},
		{"cloudflare challenge", "Just a moment... " + long, true},
		{"not found page", "404 Not Found " + long, true},
		{"access denied", "Access Denied " + long, true},
		{"signature deep in body is fine", long + " the phrase page not found appears late", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateArticleContent(tc.content, 200)
			if tc.wantErr && err == nil {
				t.Error("expected validation to fail")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("expected validation to pass, got %v", err)
			}
		})
	}
}

func TestVideoFileLink(t *testing.T) {
	v := Video{ID: 1}
	v.VideoFiles = []struct {
		Quality string `json:"quality"`
		Link    string `json:"link"`
		Width   int    `json:"width"`
		Height  int    `json:"height"`
	}{
		{Quality: "sd", Link: "https://x/sd.mp4"},
		{Quality: "hd", Link: "https://x/hd.mp4"},
	}

	link, err := v.FileLink("hd")
	if err != nil {
		t.Fatalf("file link failed: %v", err)
	}
	if link != "https://x/hd.mp4" {
		t.Errorf("expected hd link, got %q", link)
	}

	// missing quality falls back to the first file
	link, err = v.FileLink("uhd")
	if err != nil {
		t.Fatalf("file link failed: %v", err)
	}
	if link != "https://x/sd.mp4" {
		t.Errorf("expected first-file fallback, got %q", link)
	}

	empty := Video{ID: 2}
	if _, err := empty.FileLink("hd"); err == nil {
		t.Error("no files must be an error")
	}
}

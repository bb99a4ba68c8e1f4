package pipeline

import "testing"

func TestMatchSource(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "instagram", url: "https://www.instagram.com/p/DEF456/", want: "instagram"},
		{name: "instagram short host", url: "https://instagr.am/p/DEF456/", want: "instagram"},
		{name: "youtube", url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", want: "youtube"},
		{name: "youtube short link", url: "https://youtu.be/dQw4w9WgXcQ", want: "youtube"},
		{name: "youtube subdomain", url: "https://m.youtube.com/watch?v=abc", want: "youtube"},
		{name: "tiktok", url: "https://www.tiktok.com/@user/video/123", want: "tiktok"},
		{name: "unknown host", url: "https://example.com/v/1", want: "generic"},
		{name: "suffix is not a subdomain", url: "https://notyoutube.com/watch", want: "generic"},
		{name: "host with port", url: "https://youtube.com:443/watch?v=abc", want: "youtube"},
		{name: "unparseable", url: "://nope", want: "generic"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := MatchSource(test.url).Name
			if got != test.want {
				t.Fatalf("MatchSource(%q).Name = %q, want %q", test.url, got, test.want)
			}
		})
	}
}

func TestCleanURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "generic strips query and fragment",
			url:  "https://example.com/v/1?utm_source=share&utm_medium=web#t=10",
			want: "https://example.com/v/1",
		},
		{
			name: "instagram strips share token",
			url:  "https://www.instagram.com/reel/ABC123/?igsh=xyzzy&utm_source=ig",
			want: "https://www.instagram.com/reel/ABC123/",
		},
		{
			name: "youtube keeps watch id",
			url:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ&feature=share&si=track",
			want: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name: "youtube keeps playlist id",
			url:  "https://www.youtube.com/watch?v=abc&list=PL123&index=4",
			want: "https://www.youtube.com/watch?list=PL123&v=abc",
		},
		{
			name: "no query stays put",
			url:  "https://example.com/v/1",
			want: "https://example.com/v/1",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := CleanURL(test.url)
			if got != test.want {
				t.Fatalf("CleanURL(%q) = %q, want %q", test.url, got, test.want)
			}
		})
	}
}

func TestValidateInputURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid https", input: "https://example.com/v/1", wantErr: false},
		{name: "valid http", input: "http://example.com/v/1", wantErr: false},
		{name: "missing scheme", input: "example.com/v/1", wantErr: true},
		{name: "missing host", input: "https:///v/1", wantErr: true},
		{name: "unsupported scheme", input: "ftp://example.com/v/1", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := validateInputURL(test.input)
			if test.wantErr && err == nil {
				t.Fatalf("expected error for %q", test.input)
			}
			if !test.wantErr && err != nil {
				t.Fatalf("unexpected error for %q: %v", test.input, err)
			}
			if test.wantErr && CategoryOf(err) != CategoryInvalidInput {
				t.Fatalf("expected invalid-input category, got %s", CategoryOf(err))
			}
		})
	}
}

func TestLooksLikeCarousel(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{name: "instagram post", url: "https://www.instagram.com/p/DEF456/", want: true},
		{name: "youtube single", url: "https://www.youtube.com/watch?v=abc", want: false},
		{name: "youtube playlist", url: "https://www.youtube.com/watch?v=abc&list=PL123", want: true},
		{name: "generic", url: "https://example.com/v/1", want: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := looksLikeCarousel(test.url, MatchSource(test.url))
			if got != test.want {
				t.Fatalf("looksLikeCarousel(%q) = %v, want %v", test.url, got, test.want)
			}
		})
	}
}

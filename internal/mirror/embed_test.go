package mirror

import "testing"

func image(name string) NormalizedMedia {
	return NormalizedMedia{Kind: MediaImage, Bytes: []byte(name), MIME: "image/jpeg", AltText: name}
}

func video(name string) NormalizedMedia {
	return NormalizedMedia{Kind: MediaVideo, Bytes: []byte(name), MIME: "video/mp4", AltText: name}
}

func TestBuildEmbedEmpty(t *testing.T) {
	embed := BuildEmbed(nil)
	if !embed.Empty() {
		t.Fatalf("expected empty embed, got %+v", embed)
	}
}

func TestBuildEmbedVideoIsExclusive(t *testing.T) {
	embed := BuildEmbed([]NormalizedMedia{image("a"), video("v"), image("b")})
	if embed.Video == nil {
		t.Fatal("expected a video embed")
	}
	if embed.Video.AltText != "v" {
		t.Fatalf("wrong video selected: %q", embed.Video.AltText)
	}
	if len(embed.Images) != 0 {
		t.Fatalf("images must be dropped when a video is present, got %d", len(embed.Images))
	}
}

func TestBuildEmbedGalleryCapKeepsEarliest(t *testing.T) {
	media := []NormalizedMedia{
		image("1"), image("2"), image("3"), image("4"), image("5"), image("6"),
	}
	embed := BuildEmbed(media)
	if embed.Video != nil {
		t.Fatal("unexpected video")
	}
	if len(embed.Images) != MaxGalleryImages {
		t.Fatalf("expected %d images, got %d", MaxGalleryImages, len(embed.Images))
	}
	for i, want := range []string{"1", "2", "3", "4"} {
		if embed.Images[i].AltText != want {
			t.Fatalf("images[%d] = %q, want %q", i, embed.Images[i].AltText, want)
		}
	}
}

func TestBuildEmbedDeterministic(t *testing.T) {
	media := []NormalizedMedia{image("a"), image("b")}
	first := BuildEmbed(media)
	second := BuildEmbed(media)
	if len(first.Images) != len(second.Images) {
		t.Fatal("embed selection not deterministic")
	}
	for i := range first.Images {
		if first.Images[i].AltText != second.Images[i].AltText {
			t.Fatal("embed ordering not deterministic")
		}
	}
}

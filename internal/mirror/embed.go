package mirror

// MaxGalleryImages is the destination's image-per-post ceiling.
const MaxGalleryImages = 4

// BuildEmbed selects the embed structure for one post from its normalized
// media, in arrival order. The destination never mixes video and images in
// one post: the first video wins exclusively and any images are dropped.
// Without video, the first MaxGalleryImages images form a gallery.
func BuildEmbed(media []NormalizedMedia) EmbedSpec {
	for i := range media {
		if media[i].Kind == MediaVideo {
			video := media[i]
			return EmbedSpec{Video: &video}
		}
	}

	var images []NormalizedMedia
	for _, m := range media {
		if m.Kind != MediaImage {
			continue
		}
		images = append(images, m)
		if len(images) == MaxGalleryImages {
			break
		}
	}

	return EmbedSpec{Images: images}
}

package loaders

import (
	"fmt"
	"image"
	"os"

	// decoders are looked up by image.Decode
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/spaghettifunk/lumen/engine/resources"
)

// ImageLoader decodes png, jpeg, tiff and bmp files.
type ImageLoader struct{}

func (il *ImageLoader) Load(path string, assetType resources.ResourceType, params interface{}) (*resources.Resource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("decoding %s: empty %s image", path, format)
	}
	return &resources.Resource{
		Type:     resources.ResourceTypeImage,
		FullPath: path,
		DataSize: uint64(info.Size()),
		Data:     img,
	}, nil
}

func (il *ImageLoader) Unload(*resources.Resource) error {
	return nil
}

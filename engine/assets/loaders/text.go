package loaders

import (
	"os"

	"github.com/spaghettifunk/lumen/engine/resources"
)

// TextLoader reads shader sources and other UTF-8 files.
type TextLoader struct{}

func (tl *TextLoader) Load(path string, assetType resources.ResourceType, params interface{}) (*resources.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &resources.Resource{
		Type:     resources.ResourceTypeText,
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     string(data),
	}, nil
}

func (tl *TextLoader) Unload(*resources.Resource) error {
	return nil
}

package assets

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/meshes"
	"github.com/spaghettifunk/lumen/engine/resources"
)

// MaterialConfig is the decoded form of a file under materials/.
type MaterialConfig = resources.MaterialConfig

// ChangeFunc receives the asset root relative path of a file that was
// created, written or removed. It runs on the watcher goroutine.
type ChangeFunc func(path string, assetType resources.ResourceType)

type AssetInfo struct {
	Path       string
	Type       resources.ResourceType
	LastLoaded time.Time
}

type cacheKey struct {
	path   string
	params interface{}
}

/**
 * @brief AssetManager indexes every file below the asset root and serves
 * cached loads of them. With watching enabled, writes to a file evict its
 * cached loads and are reported to subscribers. Paths are slash separated
 * and relative to the root, e.g. "shaders/v-screenquad.glsl".
 */
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[resources.ResourceType]Loader
	cache   map[cacheKey]*resources.Resource
	// generation counts evictions per path so a load racing a change is
	// not cached.
	generation map[string]uint64

	mutex sync.RWMutex

	subMutex    sync.Mutex
	subscribers map[uuid.UUID]ChangeFunc

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager(root string) (*AssetManager, error) {
	s, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("asset root %s: %w", root, err)
	}
	if !s.IsDir() {
		return nil, fmt.Errorf("asset root %s is not a directory", root)
	}

	return &AssetManager{
		root:        root,
		assets:      make(map[string]AssetInfo),
		loaders:     make(map[resources.ResourceType]Loader),
		cache:       make(map[cacheKey]*resources.Resource),
		generation:  make(map[string]uint64),
		subscribers: make(map[uuid.UUID]ChangeFunc),
		done:        make(chan struct{}),
	}, nil
}

// Initialize registers the loaders and indexes the asset root. With watch
// set, every directory below the root is also watched for changes.
func (am *AssetManager) Initialize(watch bool) error {
	// Register loaders
	am.registerLoader(resources.ResourceTypeText, &loaders.TextLoader{})
	am.registerLoader(resources.ResourceTypeBinary, &loaders.BinaryLoader{})
	am.registerLoader(resources.ResourceTypeImage, &loaders.ImageLoader{})
	am.registerLoader(resources.ResourceTypeMaterial, &loaders.MaterialLoader{})
	am.registerLoader(resources.ResourceTypeMesh, &loaders.MeshLoader{})

	if watch {
		fsWatch, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		am.fsnotify = fsWatch
		go am.start()
	}

	if err := am.addRecursive(am.root); err != nil {
		return err
	}
	core.LogInfo("indexed %d assets under %s (watch=%t)", am.Len(), am.root, watch)
	return nil
}

func (am *AssetManager) Root() string {
	return am.root
}

// Len is the number of indexed assets.
func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Info returns the index entry of an asset.
func (am *AssetManager) Info(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[path]
	return info, ok
}

// AddRecursive starts indexing, and watching if enabled, the named directory
// and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	return am.watchRecursive(name, false)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType resources.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// Subscribe registers fn for change notifications.
func (am *AssetManager) Subscribe(fn ChangeFunc) uuid.UUID {
	am.subMutex.Lock()
	defer am.subMutex.Unlock()
	id := uuid.New()
	am.subscribers[id] = fn
	return id
}

func (am *AssetManager) Unsubscribe(id uuid.UUID) {
	am.subMutex.Lock()
	defer am.subMutex.Unlock()
	delete(am.subscribers, id)
}

func (am *AssetManager) notify(path string, assetType resources.ResourceType) {
	am.subMutex.Lock()
	subs := make([]ChangeFunc, 0, len(am.subscribers))
	for _, fn := range am.subscribers {
		subs = append(subs, fn)
	}
	am.subMutex.Unlock()
	for _, fn := range subs {
		fn(path, assetType)
	}
}

func (am *AssetManager) fullPath(path string) string {
	return filepath.Join(am.root, filepath.FromSlash(path))
}

func (am *AssetManager) relPath(fullPath string) (string, bool) {
	rel, err := filepath.Rel(am.root, fullPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// LoadAsset loads the asset at path with the loader for resourceType. The
// result is cached per path and params until the file changes. params must
// be comparable.
func (am *AssetManager) LoadAsset(path string, resourceType resources.ResourceType, params interface{}) (*resources.Resource, error) {
	key := cacheKey{path: path, params: params}

	am.mutex.RLock()
	res, cached := am.cache[key]
	_, exists := am.assets[path]
	gen := am.generation[path]
	am.mutex.RUnlock()
	if cached {
		return res, nil
	}

	if !exists {
		// Files created while not watching are picked up on first use.
		if s, err := os.Stat(am.fullPath(path)); err != nil || s.IsDir() {
			return nil, fmt.Errorf("%s: %w", path, core.ErrAssetNotFound)
		}
		am.handleFileEvent(path)
	}

	loader, loaderExists := am.loaders[resourceType]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", resourceType)
	}

	res, err := loader.Load(am.fullPath(path), resourceType, params)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, core.ErrAssetNotFound)
		}
		return nil, err
	}
	res.Name = path

	am.mutex.Lock()
	if asset, ok := am.assets[path]; ok {
		asset.LastLoaded = time.Now()
		am.assets[path] = asset // Update the loaded time
	}
	if am.generation[path] == gen {
		am.cache[key] = res
	}
	am.mutex.Unlock()

	return res, nil
}

func (am *AssetManager) UnloadAsset(res *resources.Resource) error {
	am.mutex.Lock()
	for key, cached := range am.cache {
		if cached == res {
			delete(am.cache, key)
		}
	}
	am.mutex.Unlock()

	if loader, ok := am.loaders[res.Type]; ok {
		return loader.Unload(res)
	}
	return nil
}

// Invalidate drops every cached load of path.
func (am *AssetManager) Invalidate(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.invalidateLocked(path)
}

func (am *AssetManager) invalidateLocked(path string) {
	am.generation[path]++
	for key := range am.cache {
		if key.path == path {
			delete(am.cache, key)
		}
	}
}

// Text returns the contents of a text asset. It satisfies the shader
// manager's source provider.
func (am *AssetManager) Text(path string) (string, error) {
	res, err := am.LoadAsset(path, resources.ResourceTypeText, nil)
	if err != nil {
		return "", err
	}
	text, _ := res.Text()
	return text, nil
}

func (am *AssetManager) Binary(path string) ([]byte, error) {
	res, err := am.LoadAsset(path, resources.ResourceTypeBinary, nil)
	if err != nil {
		return nil, err
	}
	data, _ := res.Bytes()
	return data, nil
}

func (am *AssetManager) Image(path string) (image.Image, error) {
	res, err := am.LoadAsset(path, resources.ResourceTypeImage, nil)
	if err != nil {
		return nil, err
	}
	img, _ := res.Image()
	return img, nil
}

func (am *AssetManager) Material(path string) (*MaterialConfig, error) {
	res, err := am.LoadAsset(path, resources.ResourceTypeMaterial, nil)
	if err != nil {
		return nil, err
	}
	cfg, _ := res.Material()
	return cfg, nil
}

// Mesh parses an obj asset with the given import scale. The returned builder
// is shared with later calls and must not be modified.
func (am *AssetManager) Mesh(path string, scale float32) (*meshes.Builder, error) {
	res, err := am.LoadAsset(path, resources.ResourceTypeMesh, resources.MeshResourceParams{Scale: scale})
	if err != nil {
		return nil, err
	}
	b, _ := res.Mesh()
	return b, nil
}

// Shutdown stops the watcher. Cached loads stay readable.
func (am *AssetManager) Shutdown() {
	if am.isClosed {
		return
	}
	am.isClosed = true
	close(am.done)
}

func (am *AssetManager) start() {
	for {
		select {

		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name, false); err != nil {
						core.LogWarn("watching %s: %s", e.Name, err)
					}
				}
				continue
			}
			path, ok := am.relPath(e.Name)
			if !ok {
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.mutex.Lock()
				am.invalidateLocked(path)
				am.mutex.Unlock()
				if t := am.handleFileEvent(path); t != resources.ResourceTypeNone {
					core.LogDebug("asset changed: %s", path)
					am.notify(path, t)
				}
			}
			// A removed directory can't be stat'ed, so removal is treated the
			// same for files and directories.
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				if t := am.removeAsset(path); t != resources.ResourceTypeNone {
					core.LogDebug("asset removed: %s", path)
					am.notify(path, t)
				}
				_ = am.fsnotify.Remove(e.Name)
			}

		case e, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(e.Error())

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// watchRecursive indexes all files under the given directory and, when a
// watcher is running, adds every directory to its watch list.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if am.fsnotify == nil {
				return nil
			}
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		if p, ok := am.relPath(walkPath); ok {
			am.handleFileEvent(p)
		}
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) resources.ResourceType {
	assetType := determineAssetType(path)
	if assetType == resources.ResourceTypeNone {
		return assetType
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{
		Path: path,
		Type: assetType,
	}
	return assetType
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) resources.ResourceType {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	info, ok := am.assets[path]
	if !ok {
		return resources.ResourceTypeNone
	}
	delete(am.assets, path)
	am.invalidateLocked(path)
	return info.Type
}

func determineAssetType(path string) resources.ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".glsl", ".vert", ".frag", ".txt":
		return resources.ResourceTypeText
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp":
		return resources.ResourceTypeImage
	case ".toml":
		if strings.HasPrefix(path, "materials/") {
			return resources.ResourceTypeMaterial
		}
		return resources.ResourceTypeText
	case ".obj":
		return resources.ResourceTypeMesh
	case ".bin", ".exr", ".hdr", ".spv":
		return resources.ResourceTypeBinary
	default:
		return resources.ResourceTypeNone
	}
}

package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/systems"
)

type WindowConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting position x axis.
	X uint32 `toml:"x"`
	// Window starting position y axis.
	Y uint32 `toml:"y"`
	// Window starting width.
	Width uint32 `toml:"width"`
	// Window starting height.
	Height uint32 `toml:"height"`
	VSync  bool   `toml:"vsync"`
}

type AssetsConfig struct {
	// Directory every asset path is relative to.
	Root string `toml:"root"`
	// Reload shaders and materials when they change on disk.
	Watch bool `toml:"watch"`
}

type RendererConfig struct {
	// Zero disables frame limiting.
	TargetFPS            float64  `toml:"target_fps"`
	DefaultEnvironment   string   `toml:"default_environment"`
	Environments         []string `toml:"environments"`
	EnvironmentQueueSize int      `toml:"environment_queue_size"`
}

type JobsConfig struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

type ApplicationConfig struct {
	Window       WindowConfig              `toml:"window"`
	LogLevel     core.LogLevel             `toml:"log_level"`
	Assets       AssetsConfig              `toml:"assets"`
	Renderer     RendererConfig            `toml:"renderer"`
	Camera       systems.OrbitCameraConfig `toml:"camera"`
	Jobs         JobsConfig                `toml:"jobs"`
	DefaultScene string                    `toml:"default_scene"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Window: WindowConfig{
			Name:   "Lumen",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		LogLevel: core.LogLevelInfo,
		Assets: AssetsConfig{
			Root:  "assets",
			Watch: true,
		},
		Renderer: RendererConfig{
			TargetFPS:            60,
			DefaultEnvironment:   "PuzzleRoom",
			Environments:         []string{"PuzzleRoom", "Tunnels"},
			EnvironmentQueueSize: 8,
		},
		Camera: systems.DefaultOrbitCameraConfig(),
		Jobs: JobsConfig{
			Workers:   2,
			QueueSize: 16,
		},
	}
}

/**
 * @brief Reads the application configuration. Keys missing from the file
 * keep their default value and a missing file yields the defaults.
 */
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		core.LogInfo("no configuration at %s, using defaults", path)
		return config, nil
	}
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

func (c *ApplicationConfig) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("window size %dx%d: %w", c.Window.Width, c.Window.Height, core.ErrInvalidField)
	}
	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("jobs.workers must be positive: %w", core.ErrInvalidField)
	}
	if c.Jobs.QueueSize < 0 || c.Renderer.EnvironmentQueueSize < 0 {
		return fmt.Errorf("queue sizes must not be negative: %w", core.ErrInvalidField)
	}
	if c.Renderer.TargetFPS < 0 {
		return fmt.Errorf("renderer.target_fps must not be negative: %w", core.ErrInvalidField)
	}
	if c.Camera.MinZoom > c.Camera.MaxZoom {
		return fmt.Errorf("camera zoom range [%g, %g]: %w", c.Camera.MinZoom, c.Camera.MaxZoom, core.ErrInvalidField)
	}
	return nil
}

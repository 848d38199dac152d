package systems

import (
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/components"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

type SystemManagerConfig struct {
	Workers              int
	QueueSize            int
	Environments         []string
	EnvironmentQueueSize int
	Camera               OrbitCameraConfig
	Viewport             components.Viewport
}

// SystemManager builds the engine subsystems in dependency order and shuts
// them down in reverse.
type SystemManager struct {
	jobSystem   *JobSystem
	envManager  *EnvManager
	orbitCamera *OrbitCamera

	unregisterInput func()
}

func NewSystemManager(ctx *gpu.Context, images ImageSource, config SystemManagerConfig) (*SystemManager, error) {
	js, err := NewJobSystem(config.Workers, config.QueueSize)
	if err != nil {
		return nil, err
	}
	em := NewEnvManager(ctx, images, js, config.Environments, config.EnvironmentQueueSize)
	oc := NewOrbitCamera(config.Camera, config.Viewport)

	core.LogInfo("systems initialized: %d environments configured", len(config.Environments))
	return &SystemManager{
		jobSystem:       js,
		envManager:      em,
		orbitCamera:     oc,
		unregisterInput: oc.registerInput(),
	}, nil
}

func (sm *SystemManager) Jobs() *JobSystem {
	return sm.jobSystem
}

func (sm *SystemManager) Environments() *EnvManager {
	return sm.envManager
}

func (sm *SystemManager) Camera() *OrbitCamera {
	return sm.orbitCamera
}

// Update runs the callbacks of finished jobs. Call once per frame from the
// render thread.
func (sm *SystemManager) Update() {
	sm.jobSystem.Update()
}

func (sm *SystemManager) Shutdown() error {
	if sm.unregisterInput != nil {
		sm.unregisterInput()
		sm.unregisterInput = nil
	}
	sm.envManager.Dispose()
	return sm.jobSystem.Shutdown()
}

// Package viewer holds the preview state of a web viewer page: which source
// was selected, which asset is shown and at which scale.
package viewer

import (
	"errors"
	"sync"
	"time"

	"github.com/roboticeyes/arpreview/autofit"
	"github.com/roboticeyes/arpreview/event"
	"github.com/roboticeyes/arpreview/math"
)

var log = event.Log

// Variant identifies the front-end a viewer belongs to
type Variant string

// Phase is the step of the preview workflow
type Phase string

const (
	// VariantModel previews uploaded 3D models directly
	VariantModel Variant = "model"
	// VariantImage converts uploaded photos to 3D models first
	VariantImage Variant = "image"

	PhaseIdle      Phase = "idle"
	PhaseUploading Phase = "uploading"
	PhaseLoading   Phase = "loading"
	PhaseLoaded    Phase = "loaded"
	PhaseError     Phase = "error"
)

var (
	// ErrNoAsset is returned for load notifications while no asset is shown
	ErrNoAsset = errors.New("no asset is shown")
	// ErrStaleAsset is returned for load notifications of a replaced asset
	ErrStaleAsset = errors.New("asset was replaced")
	// ErrSuperseded is returned if another source was selected meanwhile
	ErrSuperseded = errors.New("another source was selected")
)

// ParseVariant returns the variant for its name
func ParseVariant(name string) (Variant, bool) {
	switch Variant(name) {
	case VariantModel, VariantImage:
		return Variant(name), true
	}
	return "", false
}

// Snapshot is the state pushed to the page
type Snapshot struct {
	Variant    Variant     `json:"variant"`
	Phase      Phase       `json:"phase"`
	Source     string      `json:"source,omitempty"`
	AssetURL   string      `json:"assetUrl,omitempty"`
	Inspected  *math.Vec3f `json:"inspected,omitempty"`  // bounds read on upload
	Dimensions *math.Vec3f `json:"dimensions,omitempty"` // bounds reported by the viewer
	Fitted     *math.Vec3f `json:"fitted,omitempty"`     // dimensions after scaling
	Scale      string      `json:"scale"`
	Message    string      `json:"message,omitempty"`
	Selection  uint64      `json:"selection"` // revision of the last Select or Reset
	Revision   uint64      `json:"revision"`
	Updated    time.Time   `json:"updated"`

	Transformation math.TransformationWithScale `json:"transformation"`
}

// Viewer is the state of one viewer page. All methods are safe for
// concurrent use.
type Viewer struct {
	variant    Variant
	phase      Phase
	source     string
	assetURL   string
	inspected  *math.Vec3f
	dimensions *math.Vec3f
	fitted     *math.Vec3f
	transform  math.TransformationWithScale
	message    string
	selection  uint64
	revision   uint64
	updated    time.Time
	listeners  []func(Snapshot)
	mutex      sync.Mutex
}

// New creates an idle viewer
func New(variant Variant) *Viewer {
	return &Viewer{
		variant:   variant,
		phase:     PhaseIdle,
		transform: math.NewTransformationWithScale(),
		updated:   time.Now(),
	}
}

// Variant returns the variant of the viewer
func (v *Viewer) Variant() Variant {
	return v.variant
}

// Subscribe registers fn to be called with every new snapshot
func (v *Viewer) Subscribe(fn func(Snapshot)) {
	v.mutex.Lock()
	v.listeners = append(v.listeners, fn)
	v.mutex.Unlock()
}

// Snapshot returns the current state
func (v *Viewer) Snapshot() Snapshot {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.snapshot()
}

// Scale returns the current three axis scale
func (v *Viewer) Scale() math.Vec3f {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.transform.ScaleVector()
}

// Select is called when the user picks a new source file. The shown asset is
// dropped and the scale goes back to identity before any load event fires.
// The Selection of the returned snapshot identifies this pick for Show and
// Fail.
func (v *Viewer) Select(source string) Snapshot {
	return v.update(func() {
		v.selection = v.revision + 1
		v.phase = PhaseUploading
		v.source = source
		v.assetURL = ""
		v.inspected = nil
		v.dimensions = nil
		v.fitted = nil
		v.transform = math.NewTransformationWithScale()
		v.message = ""
	})
}

// Show hands the asset produced for a selection to the viewer. inspected may
// be nil if the bounds could not be read on upload.
func (v *Viewer) Show(selection uint64, assetURL string, inspected *math.Vec3f) (Snapshot, error) {
	return v.Publish(selection, assetURL, inspected, nil)
}

// Publish is Show with a hook which makes the asset available. publish runs
// with the viewer locked and only if the selection is still current, so an
// asset of a superseded selection is never served. publish may be nil.
func (v *Viewer) Publish(selection uint64, assetURL string, inspected *math.Vec3f, publish func()) (Snapshot, error) {
	return v.updateSelection(selection, func() {
		if publish != nil {
			publish()
		}
		v.phase = PhaseLoading
		v.assetURL = assetURL
		v.inspected = inspected
		v.dimensions = nil
		v.fitted = nil
		v.message = ""
	})
}

// Loaded handles the load-complete notification of the viewer. The reported
// dimensions are fitted to the target size; degenerate dimensions keep the
// current scale. If assetURL is not empty it must match the shown asset.
func (v *Viewer) Loaded(assetURL string, dimensions math.Vec3f) (Snapshot, bool, error) {
	v.mutex.Lock()
	if v.assetURL == "" {
		v.mutex.Unlock()
		return Snapshot{}, false, ErrNoAsset
	}
	if assetURL != "" && assetURL != v.assetURL {
		v.mutex.Unlock()
		return Snapshot{}, false, ErrStaleAsset
	}

	scale, applied := autofit.Fit(dimensions, v.transform.ScaleVector())
	if !applied {
		log.WithFields(event.Fields{
			"variant":    v.variant,
			"asset":      v.assetURL,
			"dimensions": dimensions.String(),
		}).Debug("Degenerate asset size, keeping scale")
	}
	dims := dimensions
	v.phase = PhaseLoaded
	v.dimensions = &dims
	v.transform.Scale = scale.X
	fitted := math.Box{Max: dims}.Transform(v.transform.Matrix()).Size()
	v.fitted = &fitted
	s := v.commit()
	v.mutex.Unlock()

	v.notify(s)
	return s, applied, nil
}

// Fail puts the viewer in the error state. No asset is shown afterwards. A
// selection of 0 fails whatever is selected.
func (v *Viewer) Fail(selection uint64, message string) (Snapshot, error) {
	return v.updateSelection(selection, func() {
		v.phase = PhaseError
		v.assetURL = ""
		v.inspected = nil
		v.dimensions = nil
		v.fitted = nil
		v.message = message
	})
}

// Reset returns to the idle state. Pending selections are superseded.
func (v *Viewer) Reset() Snapshot {
	return v.update(func() {
		v.selection = v.revision + 1
		v.phase = PhaseIdle
		v.source = ""
		v.assetURL = ""
		v.inspected = nil
		v.dimensions = nil
		v.fitted = nil
		v.transform = math.NewTransformationWithScale()
		v.message = ""
	})
}

func (v *Viewer) updateSelection(selection uint64, fn func()) (Snapshot, error) {
	v.mutex.Lock()
	if selection != 0 && selection != v.selection {
		v.mutex.Unlock()
		return Snapshot{}, ErrSuperseded
	}
	fn()
	s := v.commit()
	v.mutex.Unlock()

	v.notify(s)
	return s, nil
}

func (v *Viewer) update(fn func()) Snapshot {
	v.mutex.Lock()
	fn()
	s := v.commit()
	v.mutex.Unlock()

	v.notify(s)
	return s
}

// commit must be called with the mutex held
func (v *Viewer) commit() Snapshot {
	v.revision++
	v.updated = time.Now()
	return v.snapshot()
}

func (v *Viewer) snapshot() Snapshot {
	return Snapshot{
		Variant:    v.variant,
		Phase:      v.phase,
		Source:     v.source,
		AssetURL:   v.assetURL,
		Inspected:  v.inspected,
		Dimensions: v.dimensions,
		Fitted:     v.fitted,
		Scale:      v.transform.ScaleVector().String(),
		Message:    v.message,
		Selection:  v.selection,
		Revision:   v.revision,
		Updated:    v.updated,

		Transformation: v.transform,
	}
}

func (v *Viewer) notify(s Snapshot) {
	v.mutex.Lock()
	listeners := make([]func(Snapshot), len(v.listeners))
	copy(listeners, v.listeners)
	v.mutex.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

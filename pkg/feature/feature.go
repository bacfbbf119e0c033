package feature

import (
	"github.com/spf13/pflag"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/component-base/featuregate"
)

const (
	// MyFeature featuregate.Feature = "MyFeature"
	// owner: @username
	// alpha: v1.X
	// (see https://github.com/kubernetes/kubernetes/blob/master/pkg/features/kube_features.go)

	// ManifestUpload enables importing uploaded manifests into an editor
	// session.
	// alpha: v0.1.0
	ManifestUpload featuregate.Feature = "ManifestUpload"

	// JSONPatch enables RFC 6902 patches against the session document.
	// beta: v0.1.0
	JSONPatch featuregate.Feature = "JSONPatch"
)

var (
	mutableGate featuregate.MutableFeatureGate = featuregate.NewFeatureGate()

	// Gate holds the set of feature gates
	Gate featuregate.FeatureGate = mutableGate
)

func init() {
	utilruntime.Must(mutableGate.Add(featureGates))
}

// AddFlag adds the feature gates defined in this package to the to the given FlagSet.
func AddFlag(fs *pflag.FlagSet) {
	mutableGate.AddFlag(fs)
}

// Set applies a comma separated list of gate=bool pairs, as read from a
// config file.
func Set(value string) error {
	return mutableGate.Set(value)
}

var featureGates = map[featuregate.Feature]featuregate.FeatureSpec{
	ManifestUpload: {Default: false, PreRelease: featuregate.Alpha},
	JSONPatch:      {Default: true, PreRelease: featuregate.Beta},
}

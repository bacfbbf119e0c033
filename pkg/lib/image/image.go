package image

import (
	"strings"

	"github.com/distribution/reference"
	corev1 "k8s.io/api/core/v1"
)

// InferImagePullPolicy picks the pull policy of an operator container.
// Images pinned by digest never change and are pulled only when missing;
// anything else is pulled on every start so a moved tag is picked up.
func InferImagePullPolicy(image string) corev1.PullPolicy {
	ref, err := reference.ParseAnyReference(image)
	if err != nil {
		// Leave unparsable references to the digest marker.
		if strings.Contains(image, "@") {
			return corev1.PullIfNotPresent
		}
		return corev1.PullAlways
	}
	if _, ok := ref.(reference.Digested); ok {
		return corev1.PullIfNotPresent
	}
	return corev1.PullAlways
}

package skeleton

import (
	"github.com/go-gl/mathgl/mgl64"

	"egg-transcoder/internal/asset"
)

// WorldTransforms chains each bone's local transform with its parent's.
// Set rest to use rest poses instead of bind poses. Returns one matrix per bone.
func WorldTransforms(s *asset.Skeleton, rest bool) []mgl64.Mat4 {
	worlds := make([]mgl64.Mat4, len(s.Bones))
	for i, bone := range s.Bones {
		local := bone.Bind
		if rest {
			local = bone.Rest
		}

		// Chain with parent
		if bone.Parent >= 0 && bone.Parent < i {
			worlds[i] = worlds[bone.Parent].Mul4(local)
		} else {
			worlds[i] = local
		}
	}
	return worlds
}

// BonePositions returns the world-space origin of every bone in bind pose.
func BonePositions(s *asset.Skeleton) []mgl64.Vec3 {
	worlds := WorldTransforms(s, false)
	out := make([]mgl64.Vec3, len(worlds))
	for i, w := range worlds {
		out[i] = w.Col(3).Vec3()
	}
	return out
}

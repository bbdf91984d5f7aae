package scene

import (
	"cogentcore.org/core/math32"
	"github.com/qmuntal/gltf"
)

// mat4 is a column-major 4x4 matrix, the glTF layout.
type mat4 [16]float64

func identity() mat4 {
	return mat4{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
}

func (a mat4) mul(b mat4) mat4 {
	var out mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += a[k*4+row] * b[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

func (a mat4) toMatrix4() math32.Matrix4 {
	var m math32.Matrix4
	for i := range a {
		m[i] = float32(a[i])
	}
	return m
}

// localMatrix returns the node's local transform: its explicit matrix when
// set, otherwise the composed translation * rotation * scale.
func localMatrix(n *gltf.Node) mat4 {
	if n.Matrix != [16]float64{} && mat4(n.Matrix) != identity() {
		return mat4(n.Matrix)
	}
	return composeTRS(n.TranslationOrDefault(), n.RotationOrDefault(), n.ScaleOrDefault())
}

func composeTRS(t [3]float64, q [4]float64, s [3]float64) mat4 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	x2, y2, z2 := x+x, y+y, z+z
	xx, xy, xz := x*x2, x*y2, x*z2
	yy, yz, zz := y*y2, y*z2, z*z2
	wx, wy, wz := w*x2, w*y2, w*z2

	return mat4{
		(1 - (yy + zz)) * s[0], (xy + wz) * s[0], (xz - wy) * s[0], 0,
		(xy - wz) * s[1], (1 - (xx + zz)) * s[1], (yz + wx) * s[1], 0,
		(xz + wy) * s[2], (yz - wx) * s[2], (1 - (xx + yy)) * s[2], 0,
		t[0], t[1], t[2], 1,
	}
}

package directory

import (
	"bytes"
	"crypto/sha256"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
)

const (
	avatarGrid        = 5
	AvatarDefaultSize = 64
)

// Identicon renders a deterministic avatar for a user id: a symmetric
// 5x5 pattern derived from a hash of the id, scaled to the requested
// size. The same id always produces the same image.
func Identicon(userID string, size int) image.Image {
	if size <= 0 {
		size = AvatarDefaultSize
	}
	sum := sha256.Sum256([]byte(userID))

	fg := color.NRGBA{
		R: 64 + sum[0]%128,
		G: 64 + sum[1]%128,
		B: 64 + sum[2]%128,
		A: 255,
	}
	bg := color.NRGBA{R: 240, G: 240, B: 245, A: 255}

	cells := image.NewNRGBA(image.Rect(0, 0, avatarGrid, avatarGrid))
	for y := 0; y < avatarGrid; y++ {
		for x := 0; x < avatarGrid; x++ {
			// Mirror the left half so the pattern is symmetric.
			sx := x
			if sx > avatarGrid/2 {
				sx = avatarGrid - 1 - sx
			}
			bit := sum[3+y]>>uint(sx)&1 == 1
			if bit {
				cells.SetNRGBA(x, y, fg)
			} else {
				cells.SetNRGBA(x, y, bg)
			}
		}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), cells, cells.Bounds(), draw.Src, nil)
	return dst
}

func IdenticonPNG(userID string, size int) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Identicon(userID, size)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package capture

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/reptrack/internal/pose"
	"github.com/ayusman/reptrack/internal/repcount"
)

// bones pairs landmark indices to draw limbs between.
var bones = [][2]int{
	{pose.LeftShoulder, pose.RightShoulder},
	{pose.LeftShoulder, pose.LeftElbow}, {pose.LeftElbow, pose.LeftWrist},
	{pose.RightShoulder, pose.RightElbow}, {pose.RightElbow, pose.RightWrist},
	{pose.LeftShoulder, pose.LeftHip}, {pose.RightShoulder, pose.RightHip},
	{pose.LeftHip, pose.RightHip},
	{pose.LeftHip, pose.LeftKnee}, {pose.LeftKnee, pose.LeftAnkle},
	{pose.RightHip, pose.RightKnee}, {pose.RightKnee, pose.RightAnkle},
	{pose.LeftAnkle, pose.LeftHeel}, {pose.LeftHeel, pose.LeftFootIndex},
	{pose.RightAnkle, pose.RightHeel}, {pose.RightHeel, pose.RightFootIndex},
}

var (
	leftColor     = color.RGBA{R: 255, G: 140, A: 255}
	rightColor    = color.RGBA{G: 200, B: 255, A: 255}
	centerColor   = color.RGBA{R: 230, G: 230, B: 230, A: 255}
	relaxedColor  = color.RGBA{G: 220, A: 255}
	contractColor = color.RGBA{R: 255, G: 60, B: 60, A: 255}
)

// OverlayStyle controls skeleton rendering.
type OverlayStyle struct {
	LineThickness int
	JointRadius   int
	MinVisibility float64
}

// DefaultOverlayStyle is used when DrawPose gets a zero style.
var DefaultOverlayStyle = OverlayStyle{LineThickness: 2, JointRadius: 4, MinVisibility: repcount.DefaultMinVisibility}

// DrawPose draws the skeleton of p onto img and, if snap is non-nil, a
// status line with the exercise, rep count and phase. Landmarks below the
// visibility floor are skipped.
func DrawPose(img *gocv.Mat, p *pose.Pose, snap *repcount.Snapshot, style OverlayStyle) {
	if img == nil || img.Empty() {
		return
	}
	if style == (OverlayStyle{}) {
		style = DefaultOverlayStyle
	}

	width, height := img.Cols(), img.Rows()
	toPixel := func(l pose.Landmark) image.Point {
		return image.Pt(int(l.X*float64(width)), int(l.Y*float64(height)))
	}

	if p != nil {
		for _, b := range bones {
			a, okA := p.Get(b[0], style.MinVisibility)
			c, okC := p.Get(b[1], style.MinVisibility)
			if !okA || !okC {
				continue
			}
			gocv.Line(img, toPixel(a), toPixel(c), boneColor(b), style.LineThickness)
		}

		for i := pose.LeftShoulder; i < pose.NumLandmarks; i++ {
			l, ok := p.Get(i, style.MinVisibility)
			if !ok {
				continue
			}
			gocv.Circle(img, toPixel(l), style.JointRadius, sideColor(i), -1)
		}
	}

	if snap != nil {
		drawStatus(img, snap)
	}
}

func drawStatus(img *gocv.Mat, snap *repcount.Snapshot) {
	text := StatusLine(snap)
	textColor := relaxedColor
	if snap.Phase == repcount.PhaseContracted {
		textColor = contractColor
	}

	size := gocv.GetTextSize(text, gocv.FontHersheySimplex, 0.7, 2)
	gocv.Rectangle(img, image.Rect(0, 0, size.X+20, size.Y+20), color.RGBA{A: 255}, -1)
	gocv.PutText(img, text, image.Pt(10, size.Y+10), gocv.FontHersheySimplex, 0.7, textColor, 2)
}

// StatusLine formats a snapshot for on-frame display.
func StatusLine(snap *repcount.Snapshot) string {
	reps := fmt.Sprintf("%d", snap.Reps)
	if snap.TargetReps > 0 {
		reps = fmt.Sprintf("%d/%d", snap.Reps, snap.TargetReps)
	}

	line := fmt.Sprintf("%s  reps %s  %s", snap.Exercise, reps, snap.Phase)
	switch {
	case snap.Indeterminate:
		line += "  (not visible)"
	case snap.Angle != nil:
		line += fmt.Sprintf("  %.0f deg", *snap.Angle)
	}
	if snap.TargetReached {
		line += "  DONE"
	}
	return line
}

func boneColor(b [2]int) color.RGBA {
	left, right := isLeft(b[0]) && isLeft(b[1]), isRight(b[0]) && isRight(b[1])
	switch {
	case left:
		return leftColor
	case right:
		return rightColor
	default:
		return centerColor
	}
}

func sideColor(i int) color.RGBA {
	switch {
	case isLeft(i):
		return leftColor
	case isRight(i):
		return rightColor
	default:
		return centerColor
	}
}

// From the shoulders down, left landmarks have odd indices.
func isLeft(i int) bool  { return i >= pose.LeftShoulder && i%2 == 1 }
func isRight(i int) bool { return i >= pose.LeftShoulder && i%2 == 0 }

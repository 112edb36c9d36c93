package onnx

import (
	"sort"

	"github.com/passlens/passlens/pkg/detector"
)

const iouThreshold = 0.45

// candidate is a raw prediction in model-input coordinates, before
// letterbox reversal and non-maximum suppression.
type candidate struct {
	x, y, w, h float64

	score float64
	class int
}

// decodeOutput reads a YOLO-style detection head. The tensor is either
// [1, 4+classes, anchors] or the transposed [1, anchors, 4+classes]; the
// smaller of the two trailing dimensions is taken as the attribute axis.
func decodeOutput(data []float32, shape []int64, threshold float64) []candidate {
	if len(shape) != 3 || len(data) == 0 {
		return nil
	}

	attrs := int(shape[1])
	anchors := int(shape[2])

	transposed := false

	if attrs > anchors {
		attrs, anchors = anchors, attrs
		transposed = true
	}

	if attrs < 5 || attrs*anchors > len(data) {
		return nil
	}

	at := func(attr, anchor int) float64 {
		if transposed {
			return float64(data[anchor*attrs+attr])
		}

		return float64(data[attr*anchors+anchor])
	}

	var candidates []candidate

	for anchor := 0; anchor < anchors; anchor++ {
		class := 0
		score := at(4, anchor)

		for attr := 5; attr < attrs; attr++ {
			if val := at(attr, anchor); val > score {
				score = val
				class = attr - 4
			}
		}

		if score < threshold {
			continue
		}

		candidates = append(candidates, candidate{
			x: at(0, anchor),
			y: at(1, anchor),
			w: at(2, anchor),
			h: at(3, anchor),

			score: score,
			class: class,
		})
	}

	return candidates
}

// resolve maps candidates back to source pixel coordinates, discards
// degenerate boxes and suppresses overlapping detections of the same class.
func resolve(candidates []candidate, lb letterbox, threshold float64) []detector.Detection {
	var detections []detector.Detection

	for _, c := range candidates {
		if c.score < threshold {
			continue
		}

		box := detector.Box{
			X1: (c.x - c.w/2 - lb.padX) / lb.scale,
			Y1: (c.y - c.h/2 - lb.padY) / lb.scale,
			X2: (c.x + c.w/2 - lb.padX) / lb.scale,
			Y2: (c.y + c.h/2 - lb.padY) / lb.scale,
		}

		box.X1 = clamp(box.X1, 0, float64(lb.srcWidth))
		box.Y1 = clamp(box.Y1, 0, float64(lb.srcHeight))
		box.X2 = clamp(box.X2, 0, float64(lb.srcWidth))
		box.Y2 = clamp(box.Y2, 0, float64(lb.srcHeight))

		if box.X1 >= box.X2 || box.Y1 >= box.Y2 {
			continue
		}

		detections = append(detections, detector.Detection{
			ClassID: c.class,

			Confidence: c.score,

			Box: box,
		})
	}

	return suppress(detections)
}

// suppress performs class-wise non-maximum suppression.
func suppress(detections []detector.Detection) []detector.Detection {
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})

	var kept []detector.Detection

	for _, d := range detections {
		overlaps := false

		for _, k := range kept {
			if k.ClassID != d.ClassID {
				continue
			}

			if k.Box.IoU(d.Box) > iouThreshold {
				overlaps = true
				break
			}
		}

		if !overlaps {
			kept = append(kept, d)
		}
	}

	return kept
}

func clamp(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}

	if val > hi {
		return hi
	}

	return val
}

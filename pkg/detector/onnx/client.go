package onnx

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/passlens/passlens/pkg/detector"

	ort "github.com/yalue/onnxruntime_go"
)

var _ detector.Provider = (*Client)(nil)

const defaultThreshold = 0.25

type Client struct {
	modelPath string
	library   string

	inputName  string
	outputName string

	inputWidth  int
	inputHeight int

	session *ort.DynamicAdvancedSession
}

type Option func(*Client)

func WithLibrary(path string) Option {
	return func(c *Client) {
		c.library = path
	}
}

// New loads the model once. The returned client holds a shared session that
// may be used by concurrent requests; ONNX Runtime sessions are safe for
// concurrent Run calls.
func New(modelPath string, options ...Option) (*Client, error) {
	c := &Client{
		modelPath: modelPath,

		inputWidth:  640,
		inputHeight: 640,
	}

	for _, option := range options {
		option(c)
	}

	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: %v", detector.ErrModelLoad, err)
	}

	if !ort.IsInitialized() {
		if c.library != "" {
			ort.SetSharedLibraryPath(c.library)
		}

		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("%w: %v", detector.ErrModelLoad, err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", detector.ErrModelLoad, err)
	}

	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("%w: model declares no inputs or outputs", detector.ErrModelLoad)
	}

	c.inputName = inputs[0].Name
	c.outputName = outputs[0].Name

	// NCHW input. Dynamic dimensions stay at the 640x640 default.
	if dims := inputs[0].Dimensions; len(dims) == 4 {
		if dims[2] > 0 {
			c.inputHeight = int(dims[2])
		}

		if dims[3] > 0 {
			c.inputWidth = int(dims[3])
		}
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{c.inputName}, []string{c.outputName}, nil)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", detector.ErrModelLoad, err)
	}

	c.session = session

	return c, nil
}

func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Destroy()
	}

	return nil
}

func (c *Client) Info() detector.Info {
	return detector.Info{
		ModelType: "yolo",
		Device:    "cpu",

		ModelLoaded: c.session != nil,
	}
}

func (c *Client) Detect(ctx context.Context, image []byte, options *detector.DetectOptions) ([]detector.Detection, error) {
	if options == nil {
		options = new(detector.DetectOptions)
	}

	threshold := defaultThreshold

	if options.Threshold != nil {
		threshold = *options.Threshold
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := decodeImage(image)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", detector.ErrInvalidImage, err)
	}

	data, lb := prepare(img, c.inputWidth, c.inputHeight)

	input, err := ort.NewTensor(ort.NewShape(1, 3, int64(c.inputHeight), int64(c.inputWidth)), data)

	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	defer input.Destroy()

	outputs := []ort.ArbitraryTensor{nil}

	if err := c.session.Run([]ort.ArbitraryTensor{input}, outputs); err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}

	output, ok := outputs[0].(*ort.Tensor[float32])

	if !ok {
		return nil, fmt.Errorf("inference: unexpected output tensor type")
	}

	defer output.Destroy()

	candidates := decodeOutput(output.GetData(), output.GetShape(), threshold)
	detections := resolve(candidates, lb, threshold)

	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})

	return detections, nil
}

package deepface

// RepresentRequest for POST /represent
type RepresentRequest struct {
	Img              string `json:"img"`      // base64 encoded image
	Model            string `json:"model"`    // "Facenet512", "VGG-Face", etc
	Detector         string `json:"detector"` // "retinaface", "mtcnn", etc
	EnforceDetection bool   `json:"enforce_detection"`
}

// RepresentResponse from POST /represent
type RepresentResponse struct {
	Results []RepresentResult `json:"results"`
}

type RepresentResult struct {
	FacialArea     FacialArea `json:"facial_area"`
	FaceConfidence *float64   `json:"face_confidence,omitempty"`
}

// FacialArea is in pixels of the submitted image. Eye positions are [x, y]
// pairs and are null when the detector backend does not report them.
type FacialArea struct {
	X        int   `json:"x"`
	Y        int   `json:"y"`
	W        int   `json:"w"`
	H        int   `json:"h"`
	LeftEye  []int `json:"left_eye,omitempty"`
	RightEye []int `json:"right_eye,omitempty"`
}

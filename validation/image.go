package validation

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"tour-booking-webapp/model"
)

var (
	ErrImageNotSquare = errors.New("Image must be square.")
	ErrImageTooLarge  = fmt.Errorf("Image resolution must be at most %dx%d pixels.",
		model.TourImageMaxSide, model.TourImageMaxSide)
)

// ValidateTourImage checks an uploaded tour picture: it has to be square and
// no larger than 1000 pixels per side. Only the header is decoded.
func ValidateTourImage(r io.Reader) error {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return fmt.Errorf("cannot read image: %w", err)
	}
	if cfg.Width != cfg.Height {
		return ErrImageNotSquare
	}
	if cfg.Width > model.TourImageMaxSide || cfg.Height > model.TourImageMaxSide {
		return ErrImageTooLarge
	}
	return nil
}

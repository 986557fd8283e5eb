package classifier

import "errors"

var (
	// ErrEmptyDataset is returned when a source or Fit receives no usable samples.
	ErrEmptyDataset = errors.New("dataset contains no usable samples")

	// ErrNotFitted is returned when predicting with a model that was never trained.
	ErrNotFitted = errors.New("classifier is not fitted")

	// ErrMissingColumn is returned when a CSV header lacks the URL or Label column.
	ErrMissingColumn = errors.New("dataset is missing a required column")
)

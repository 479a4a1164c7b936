package containertools

type GetImageDataOptions struct {
	// WorkingDir keeps the exported image archive around after extraction.
	// When empty a temporary directory is used and removed afterwards.
	WorkingDir string
}

type GetImageDataOption func(*GetImageDataOptions)

func WithWorkingDir(workingDir string) GetImageDataOption {
	return func(o *GetImageDataOptions) {
		o.WorkingDir = workingDir
	}
}

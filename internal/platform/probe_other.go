//go:build !(linux && cgo)

package platform

func probeGPU() (*GPU, error) {
	return nil, nil
}

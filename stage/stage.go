// Package stage implements the narrow slice of the application-side
// staging contract (§4.7) that is testable from this repository:
// writing a candidate image into the DOWNLOAD region and setting the
// status byte accordingly. It deliberately does not implement or
// simulate any transport for getting image bytes onto the device in
// the first place — that is the running application's job, external
// to this repository.
package stage

import (
	"fmt"

	"openenterprise/failsafeboot/internal/flash"
	"openenterprise/failsafeboot/internal/memmap"
	"openenterprise/failsafeboot/internal/status"
)

// Image is a candidate firmware image split the way the DOWNLOAD
// region expects it: a contiguous application body and its vector
// table, copied separately because a gap may separate them in flash.
type Image struct {
	Body        []byte
	VectorTable []byte
}

// Stage writes img into the DOWNLOAD region byte-for-byte and sets the
// status flag to DOWNLOAD, the same sequence the running application
// performs after receiving a complete image over whatever transport it
// uses. DOWNLOAD must already be erased; Stage does not erase it, since
// on the real target the application writes its image incrementally as
// bytes arrive rather than buffering the whole thing first.
func Stage(c flash.Controller, l memmap.Layout, store *status.Store, img Image) error {
	if uint32(len(img.Body)) != l.Download.AppSize {
		return fmt.Errorf("stage: body is %d bytes, want %d", len(img.Body), l.Download.AppSize)
	}
	if uint32(len(img.VectorTable)) != l.Download.VectSize {
		return fmt.Errorf("stage: vector table is %d bytes, want %d", len(img.VectorTable), l.Download.VectSize)
	}

	sess := flash.Begin(c)
	for i, b := range img.Body {
		sess.WriteByte(l.Download.Base+uint32(i), b)
	}
	for i, b := range img.VectorTable {
		sess.WriteByte(l.Download.VectTableBase+uint32(i), b)
	}
	sess.End()

	if !store.Write(status.Download) {
		return fmt.Errorf("stage: could not write status byte")
	}
	return nil
}

// Validate sets the status flag to VALIDATED, the single action the
// application must take within one run after a reflash to avoid
// rollback on the next reset.
func Validate(store *status.Store) error {
	if !store.Write(status.Validated) {
		return fmt.Errorf("stage: could not write status byte")
	}
	return nil
}

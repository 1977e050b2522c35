package quetzal

import (
	"fmt"
	"io"

	"github.com/jcorbin/zvm/internal/diag"
)

// Save is the content of a Quetzal save file.
type Save struct {
	Ident  Ident
	Memory []byte // full dynamic memory
	Stacks []byte // Stks chunk payload
}

// Write encodes save as an IFZS form, storing memory as a delta against
// original.
func Write(w io.Writer, save Save, original []byte) error {
	ifhd, err := save.Ident.MarshalBinary()
	if err != nil {
		return err
	}
	if len(save.Memory) != len(original) {
		return fmt.Errorf("memory of %d bytes does not match story dynamic size %d",
			len(save.Memory), len(original))
	}
	return WriteForm(w, IDIFZS,
		Chunk{IDIFhd, ifhd},
		Chunk{IDIntD, platformID},
		Chunk{IDCMem, Diff(original, save.Memory, Base256)},
		Chunk{IDStks, save.Stacks},
	)
}

// Read decodes an IFZS form, reconstructing memory against original.
func Read(r io.ReadSeeker, original []byte) (Save, error) {
	var save Save
	formType, chunks, err := ReadForm(r)
	if err != nil {
		return save, err
	}
	if formType != IDIFZS {
		return save, diag.Errorf(diag.Save, "FORM type %q is not a Quetzal save", formType)
	}

	ifhd, ok := Find(chunks, IDIFhd)
	if !ok {
		return save, diag.Errorf(diag.Save, "missing %v chunk", IDIFhd)
	}
	if err := save.Ident.UnmarshalBinary(ifhd.Data); err != nil {
		return save, err
	}

	if cmem, ok := Find(chunks, IDCMem); ok {
		save.Memory, err = Undiff(original, cmem.Data, Base256)
		if err != nil {
			return save, err
		}
	} else if umem, ok := Find(chunks, IDUMem); ok {
		if len(umem.Data) != len(original) {
			return save, diag.Errorf(diag.Corrupt, "UMem of %d bytes, expected %d",
				len(umem.Data), len(original))
		}
		save.Memory = umem.Data
	} else {
		return save, diag.Errorf(diag.Save, "missing memory chunk")
	}

	stks, ok := Find(chunks, IDStks)
	if !ok {
		return save, diag.Errorf(diag.Save, "missing %v chunk", IDStks)
	}
	save.Stacks = stks.Data
	return save, nil
}

package metadata

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"

	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/convert"
	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/manifest"
)

// InjectImage re-encodes image bytes to JPEG at quality 85 and embeds the
// take's metadata as EXIF. The re-encode happens regardless of the source
// format; that lossy side effect matches the exported tool's behavior.
//
// Always written: DateTimeOriginal and DateTime (same value), Make and
// Software provenance strings. Written when present: GPS coordinates as
// degree/minute/second rationals with hemisphere refs, and the caption as
// ImageDescription. Pre-existing EXIF in the source is carried over
// best-effort; an unreadable container falls back to a fresh one.
//
// On any failure the original bytes are returned alongside the error so the
// caller can log and continue.
func InjectImage(data []byte, take Take) (out []byte, err error) {
	// The dsoprea libraries report some internal failures by panicking.
	defer func() {
		if r := recover(); r != nil {
			out = data
			err = fmt.Errorf("%w: %v", ErrMetadata, r)
		}
	}()

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, fmt.Errorf("%w: decode: %w", ErrMetadata, err)
	}

	encoded := new(bytes.Buffer)
	if err := imaging.Encode(encoded, imaging.Clone(img), imaging.JPEG, imaging.JPEGQuality(convert.JPEGQuality)); err != nil {
		return data, fmt.Errorf("%w: encode: %w", ErrMetadata, err)
	}

	jmp := jpegstructure.NewJpegMediaParser()
	intfc, err := jmp.ParseBytes(encoded.Bytes())
	if err != nil {
		return data, fmt.Errorf("%w: parse jpeg: %w", ErrMetadata, err)
	}
	sl := intfc.(*jpegstructure.SegmentList)

	rootIb := existingExifBuilder(data)
	if rootIb == nil {
		im, err := exifcommon.NewIfdMappingWithStandard()
		if err != nil {
			return data, fmt.Errorf("%w: ifd mapping: %w", ErrMetadata, err)
		}
		ti := exif.NewTagIndex()
		rootIb = exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder)
	}

	if err := setExifTags(rootIb, take); err != nil {
		return data, err
	}

	if err := sl.SetExif(rootIb); err != nil {
		return data, fmt.Errorf("%w: set exif: %w", ErrMetadata, err)
	}

	final := new(bytes.Buffer)
	if err := sl.Write(final); err != nil {
		return data, fmt.Errorf("%w: write jpeg: %w", ErrMetadata, err)
	}

	return final.Bytes(), nil
}

// existingExifBuilder loads the EXIF container of the source bytes when the
// source is a JPEG that carries one. Any failure returns nil so the caller
// starts from an empty container.
func existingExifBuilder(source []byte) *exif.IfdBuilder {
	defer func() {
		// Recovered parse panics fall through to the nil return.
		_ = recover()
	}()

	jmp := jpegstructure.NewJpegMediaParser()
	if !jmp.LooksLikeFormat(source) {
		return nil
	}

	intfc, err := jmp.ParseBytes(source)
	if err != nil {
		return nil
	}
	sl := intfc.(*jpegstructure.SegmentList)

	rootIb, err := sl.ConstructExifBuilder()
	if err != nil {
		return nil
	}
	return rootIb
}

// setExifTags writes the take's fields into the EXIF builder.
func setExifTags(rootIb *exif.IfdBuilder, take Take) error {
	ts := take.TakenAt.Format(exifTimeFormat)

	ifd0, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD0")
	if err != nil {
		return fmt.Errorf("%w: IFD0: %w", ErrMetadata, err)
	}
	if err := ifd0.SetStandardWithName("DateTime", ts); err != nil {
		return fmt.Errorf("%w: DateTime: %w", ErrMetadata, err)
	}
	if err := ifd0.SetStandardWithName("Make", SourceApp); err != nil {
		return fmt.Errorf("%w: Make: %w", ErrMetadata, err)
	}
	if err := ifd0.SetStandardWithName("Software", OriginatingProgram); err != nil {
		return fmt.Errorf("%w: Software: %w", ErrMetadata, err)
	}
	if take.Caption != "" {
		if err := ifd0.SetStandardWithName("ImageDescription", take.Caption); err != nil {
			return fmt.Errorf("%w: ImageDescription: %w", ErrMetadata, err)
		}
	}

	exifIfd, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/Exif")
	if err != nil {
		return fmt.Errorf("%w: IFD/Exif: %w", ErrMetadata, err)
	}
	if err := exifIfd.SetStandardWithName("DateTimeOriginal", ts); err != nil {
		return fmt.Errorf("%w: DateTimeOriginal: %w", ErrMetadata, err)
	}

	if take.Location != nil {
		if err := setGPSTags(rootIb, *take.Location); err != nil {
			return err
		}
	}

	return nil
}

// setGPSTags writes the GPS IFD. Both coordinates are required; the caller
// checks presence.
func setGPSTags(rootIb *exif.IfdBuilder, loc manifest.Location) error {
	gps, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/GPSInfo")
	if err != nil {
		return fmt.Errorf("%w: IFD/GPSInfo: %w", ErrMetadata, err)
	}

	if err := gps.SetStandardWithName("GPSVersionID", []byte{2, 3, 0, 0}); err != nil {
		return fmt.Errorf("%w: GPSVersionID: %w", ErrMetadata, err)
	}

	if err := gps.SetStandardWithName("GPSLatitudeRef", latRef(loc.Latitude)); err != nil {
		return fmt.Errorf("%w: GPSLatitudeRef: %w", ErrMetadata, err)
	}
	if err := gps.SetStandardWithName("GPSLatitude", dmsRationals(loc.Latitude)); err != nil {
		return fmt.Errorf("%w: GPSLatitude: %w", ErrMetadata, err)
	}

	if err := gps.SetStandardWithName("GPSLongitudeRef", lonRef(loc.Longitude)); err != nil {
		return fmt.Errorf("%w: GPSLongitudeRef: %w", ErrMetadata, err)
	}
	if err := gps.SetStandardWithName("GPSLongitude", dmsRationals(loc.Longitude)); err != nil {
		return fmt.Errorf("%w: GPSLongitude: %w", ErrMetadata, err)
	}

	return nil
}

// dmsRationals encodes a coordinate magnitude as the EXIF rational triple.
func dmsRationals(v float64) []exifcommon.Rational {
	deg, min, secTimes100 := dms(v)
	return []exifcommon.Rational{
		{Numerator: deg, Denominator: 1},
		{Numerator: min, Denominator: 1},
		{Numerator: secTimes100, Denominator: 100},
	}
}

// Package imaging prepares timer-display photos for OCR.
//
// The flow is: resolve a source URI to a readable file, load it with EXIF
// orientation applied, crop the user's rectangle, optionally normalize the
// crop for Tesseract, and write it as a JPEG into a private cache directory.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left. A Rect's
// (X1,Y1) corner is inclusive and (X2,Y2) is exclusive. Rectangles drawn by
// dragging may arrive with swapped corners; Normalize orders them, and Clamp
// trims them to the image.
//
// # Cache Directory
//
// Crops are written as cropped_<label>_<id>.jpg at JPEG quality 90 and
// copied sources as src_<id>.tmp. CleanCache removes both kinds once they
// are older than a given age. Nothing else in the directory is touched.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The other functions are stateless.
//
// # Error Handling
//
// Unreadable sources and failed copies wrap ErrImageAccess. A rectangle that
// is empty after clamping returns ErrEmptyCrop.
package imaging

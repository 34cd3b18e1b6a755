/*
go-pnideval evaluates symbol and text detection results on piping and
instrumentation diagrams (P&ID) against ground truth annotations.

Regions are compared with greedy class constrained IoU matching to give
precision, recall and text recognition ratios per drawing and pooled over a
corpus, together with COCO style average precision.  Fragmented text
detections can be consolidated into whole text regions before evaluation.

See the pnideval command in cmd/pnideval for batch usage.
*/
package pnideval

// Package framestore keeps the ordered frame sequence of a capture session.
//
// Every Record owns a preview bitmap and exactly one persistence backing: a
// file in the capture directory (disk mode) or the encoded bytes held in
// memory (memory mode). The store starts in the mode chosen at startup and
// only ever degrades from disk to memory, announcing the switch once per
// session. Insertion order is playback and export order.
package framestore

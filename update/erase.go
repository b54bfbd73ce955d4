package update

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/synthread/go-dbfu/protocol"
)

// computePagesAndErase requests an erase of enough of the inactive bank to
// hold the image. Completion is reported asynchronously.
func (e *Engine) computePagesAndErase() error {
	pages := protocol.PagesToErase(e.imageSize, e.config.PageSize)
	if pages > e.config.BankPages {
		return errors.Wrapf(ErrFlashErase, "image of %d bytes needs %d pages, bank has %d",
			e.imageSize, pages, e.config.BankPages)
	}
	e.pages = pages

	if err := e.flash.Unlock(); err != nil {
		return errors.Wrapf(ErrFlashErase, "unlock flash: %v", err)
	}

	bank := e.config.CurrentBank.Other()
	logrus.WithFields(logrus.Fields{
		"bank":  bank,
		"page":  e.config.ErasePageStart,
		"pages": pages,
	}).Debug("dbfu erase")

	e.flags.erasing.Store(true)
	if err := e.flash.ErasePages(bank, e.config.ErasePageStart, pages); err != nil {
		e.flags.erasing.Store(false)
		return errors.Wrapf(ErrFlashErase, "erase %d pages of %s: %v", pages, bank, err)
	}
	e.counters.erases.Add(1)

	return nil
}

// eraseEnd is the first address past the erased region
func (e *Engine) eraseEnd() uint32 {
	return e.config.BankAddress + e.pages*e.config.PageSize
}

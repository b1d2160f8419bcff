// Package compress — непрозрачная пара compress/decompress для полезной
// нагрузки сохранений. Пакет ничего не знает об игровой семантике:
// на входе текст, на выходе блоб.
package compress

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Compressor — контракт компрессора, как его видит сервис сохранений.
//
// Decompress обязан возвращать ОШИБКУ на битом или оборванном блобе;
// молча отдавать пустой текст нельзя — выше это выглядело бы как
// валидное пустое сохранение.
type Compressor interface {
	Compress(text []byte) ([]byte, error)
	Decompress(blob []byte) ([]byte, error)
}

// Zstd — синхронный компрессор на zstd.
//
// Используется напрямую в тестах (завершение строго в момент вызова)
// и как рабочая лошадка внутри Worker в продакшене.
type Zstd struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstd создаёт компрессор. Энкодер и декодер переиспользуются
// между вызовами, поэтому Zstd создаётся один раз на процесс.
func NewZstd() (*Zstd, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("init zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("init zstd decoder: %w", err)
	}
	return &Zstd{enc: enc, dec: dec}, nil
}

func (z *Zstd) Compress(text []byte) ([]byte, error) {
	return z.enc.EncodeAll(text, nil), nil
}

func (z *Zstd) Decompress(blob []byte) ([]byte, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("decompress: empty blob")
	}
	out, err := z.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return out, nil
}

// Close освобождает ресурсы энкодера/декодера.
func (z *Zstd) Close() {
	z.enc.Close()
	z.dec.Close()
}

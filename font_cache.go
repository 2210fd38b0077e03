package gopresentation

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

type fontKey struct {
	name   string
	size   float64
	dpi    float64
	bold   bool
	italic bool
}

// FontCache loads TrueType/OpenType fonts from disk on first use and caches
// the faces built from them. It is safe for concurrent use, so one cache can
// serve every slide rendered during a run.
type FontCache struct {
	mu      sync.RWMutex
	dirs    []string
	fonts   map[string]*opentype.Font // lowercase name -> parsed font
	faces   map[fontKey]font.Face
	scanned bool
}

// NewFontCache creates a FontCache that searches the given directories
// plus the OS default font directories.
func NewFontCache(extraDirs ...string) *FontCache {
	return &FontCache{
		dirs:  append(systemFontDirs(), extraDirs...),
		fonts: make(map[string]*opentype.Font),
		faces: make(map[fontKey]font.Face),
	}
}

// GetFace returns a face for the named font at sizePt points and dpi, or
// nil when no matching font file was found.
func (fc *FontCache) GetFace(name string, sizePt, dpi float64, bold, italic bool) font.Face {
	fc.ensureScanned()

	key := fontKey{name: strings.ToLower(name), size: sizePt, dpi: dpi, bold: bold, italic: italic}

	fc.mu.RLock()
	face, ok := fc.faces[key]
	fc.mu.RUnlock()
	if ok {
		return face
	}

	f := fc.findFont(key.name, bold, italic)
	if f == nil {
		return nil
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    sizePt,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil
	}

	fc.mu.Lock()
	fc.faces[key] = face
	fc.mu.Unlock()
	return face
}

var (
	boldItalicSuffixes = []string{" bold italic", "bi", " bolditalic", "z"}
	boldSuffixes       = []string{" bold", "bd", "b"}
	italicSuffixes     = []string{" italic", "i", " it"}
)

// findFont tries style variants first; Windows names them "arialbd", "ariali", ...
func (fc *FontCache) findFont(lower string, bold, italic bool) *opentype.Font {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	var variants []string
	if bold && italic {
		variants = append(variants, boldItalicSuffixes...)
	}
	if bold {
		variants = append(variants, boldSuffixes...)
	}
	if italic {
		variants = append(variants, italicSuffixes...)
	}
	for _, suffix := range variants {
		if f, ok := fc.fonts[lower+suffix]; ok {
			return f
		}
	}
	return fc.fonts[lower]
}

// LoadFont registers a font file under name.
func (fc *FontCache) LoadFont(name string, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > maxFontFileSize {
		return fmt.Errorf("font file too large: %d bytes (max %d)", info.Size(), maxFontFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return fc.LoadFontData(name, data)
}

// LoadFontData registers a font from raw bytes.
func (fc *FontCache) LoadFontData(name string, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return err
	}
	fc.mu.Lock()
	fc.fonts[strings.ToLower(name)] = f
	fc.registerByFamilyName(f)
	fc.mu.Unlock()
	return nil
}

func (fc *FontCache) ensureScanned() {
	fc.mu.RLock()
	scanned := fc.scanned
	fc.mu.RUnlock()
	if scanned {
		return
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.scanned {
		return
	}
	fc.scanned = true
	for _, dir := range fc.dirs {
		fc.scanDir(dir, 0)
	}
}

// maxFontScanDepth limits recursive directory traversal when scanning for fonts.
const maxFontScanDepth = 3

// maxFontFileSize limits the size of individual font files loaded into memory.
const maxFontFileSize = 20 << 20 // 20 MB

func (fc *FontCache) scanDir(dir string, depth int) {
	if depth > maxFontScanDepth {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			fc.scanDir(filepath.Join(dir, entry.Name()), depth+1)
			continue
		}
		lower := strings.ToLower(entry.Name())
		ext := filepath.Ext(lower)
		if ext != ".ttf" && ext != ".otf" && ext != ".ttc" && ext != ".otc" {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() > maxFontFileSize {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		base := strings.TrimSuffix(lower, ext)

		if ext == ".ttc" || ext == ".otc" {
			coll, err := opentype.ParseCollection(data)
			if err != nil {
				continue
			}
			for i := 0; i < coll.NumFonts(); i++ {
				f, err := coll.Font(i)
				if err != nil {
					continue
				}
				if i == 0 {
					fc.fonts[base] = f
				}
				fc.registerByFamilyName(f)
			}
			continue
		}

		f, err := opentype.Parse(data)
		if err != nil {
			continue
		}
		fc.fonts[base] = f
		fc.registerByFamilyName(f)
	}
}

// registerByFamilyName indexes f under its family and full names.
// Callers hold fc.mu.
func (fc *FontCache) registerByFamilyName(f *opentype.Font) {
	for _, id := range []sfnt.NameID{sfnt.NameIDFamily, sfnt.NameIDFull} {
		if n, err := f.Name(nil, id); err == nil && n != "" {
			fc.fonts[strings.ToLower(n)] = f
		}
	}
}

// systemFontDirs returns OS-specific font directories.
func systemFontDirs() []string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		dirs := []string{filepath.Join(windir, "Fonts")}
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			dirs = append(dirs, filepath.Join(local, "Microsoft", "Windows", "Fonts"))
		}
		return dirs
	case "darwin":
		dirs := []string{"/System/Library/Fonts", "/Library/Fonts"}
		if home != "" {
			dirs = append(dirs, filepath.Join(home, "Library", "Fonts"))
		}
		return dirs
	default:
		dirs := []string{"/usr/share/fonts", "/usr/local/share/fonts"}
		if home != "" {
			dirs = append(dirs, filepath.Join(home, ".local", "share", "fonts"), filepath.Join(home, ".fonts"))
		}
		return dirs
	}
}

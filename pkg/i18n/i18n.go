// Package i18n provides the localized text catalog for user-facing replies
// and the fixed per-language system instructions sent upstream.
package i18n

import (
	"errors"
	"fmt"
)

// Language identifies one of the supported reply languages.
type Language string

const (
	LangRU Language = "ru"
	LangEN Language = "en"
	LangTR Language = "tr"
	LangAR Language = "ar"
)

// Supported lists all languages with a complete text catalog.
var Supported = []Language{LangRU, LangEN, LangTR, LangAR}

// DefaultLanguage is used when no explicit preference exists and when a
// stored value falls outside the supported set.
const DefaultLanguage = LangRU

// ErrUnknownKey is returned for text keys missing from the catalog.
// This indicates a programming error, not a runtime condition.
var ErrUnknownKey = errors.New("unknown text key")

// IsSupported reports whether lang is a member of the supported set.
func IsSupported(lang Language) bool {
	for _, l := range Supported {
		if l == lang {
			return true
		}
	}
	return false
}

// Normalize maps any unsupported language value to the fallback.
// Every text lookup and prompt construction goes through this first.
func Normalize(lang Language, fallback Language) Language {
	if IsSupported(lang) {
		return lang
	}
	if IsSupported(fallback) {
		return fallback
	}
	return DefaultLanguage
}

// Text keys used by the dispatch pipeline.
const (
	KeyProcessing        = "processing"
	KeyRateLimited       = "rate_limited"
	KeyUpstreamError     = "upstream_error"
	KeyErrorGeneric      = "error_generic"
	KeySubscribeRequired = "subscribe_required"
	KeyLanguageSet       = "language_set"
	KeyHistoryCleared    = "history_cleared"
	KeySystemPrompt      = "system_prompt"
)

// catalog holds the fixed strings per key per language.
// Every key must be defined for every supported language.
var catalog = map[string]map[Language]string{
	KeyProcessing: {
		LangRU: "Обрабатываю ваш запрос...",
		LangEN: "Processing your request...",
		LangTR: "İsteğiniz işleniyor...",
		LangAR: "جارٍ معالجة طلبك...",
	},
	KeyRateLimited: {
		LangRU: "Слишком много запросов. Попробуйте снова через %d сек.",
		LangEN: "Too many requests. Please try again in %d seconds.",
		LangTR: "Çok fazla istek. Lütfen %d saniye sonra tekrar deneyin.",
		LangAR: "طلبات كثيرة جدًا. يرجى المحاولة مرة أخرى بعد %d ثانية.",
	},
	KeyUpstreamError: {
		LangRU: "Извините, не удалось получить ответ. Попробуйте позже.",
		LangEN: "Sorry, I couldn't get a response. Please try again later.",
		LangTR: "Üzgünüm, yanıt alınamadı. Lütfen daha sonra tekrar deneyin.",
		LangAR: "عذرًا، تعذر الحصول على رد. يرجى المحاولة لاحقًا.",
	},
	KeyErrorGeneric: {
		LangRU: "Произошла ошибка. Попробуйте ещё раз.",
		LangEN: "Something went wrong. Please try again.",
		LangTR: "Bir hata oluştu. Lütfen tekrar deneyin.",
		LangAR: "حدث خطأ ما. يرجى المحاولة مرة أخرى.",
	},
	KeySubscribeRequired: {
		LangRU: "Чтобы пользоваться ботом, подпишитесь на канал.",
		LangEN: "Please subscribe to the channel to use the bot.",
		LangTR: "Botu kullanmak için lütfen kanala abone olun.",
		LangAR: "يرجى الاشتراك في القناة لاستخدام البوت.",
	},
	KeyLanguageSet: {
		LangRU: "Язык изменён на русский.",
		LangEN: "Language switched to English.",
		LangTR: "Dil Türkçe olarak ayarlandı.",
		LangAR: "تم تغيير اللغة إلى العربية.",
	},
	KeyHistoryCleared: {
		LangRU: "История диалога очищена.",
		LangEN: "Conversation history cleared.",
		LangTR: "Konuşma geçmişi temizlendi.",
		LangAR: "تم مسح سجل المحادثة.",
	},
	KeySystemPrompt: {
		LangRU: "Ты — опытный программист и ассистент. Отвечай на русском языке, подробно и по делу.",
		LangEN: "You are an expert programmer and assistant. Answer in English, thoroughly and to the point.",
		LangTR: "Sen deneyimli bir programcı ve asistansın. Türkçe, ayrıntılı ve konuya odaklı yanıt ver.",
		LangAR: "أنت مبرمج خبير ومساعد. أجب باللغة العربية بشكل مفصل ومباشر.",
	},
}

// Catalog resolves localized strings for a configured default language.
type Catalog struct {
	fallback Language
}

// NewCatalog creates a catalog with the given fallback language.
// An unsupported fallback degrades to DefaultLanguage.
func NewCatalog(fallback Language) *Catalog {
	return &Catalog{fallback: Normalize(fallback, DefaultLanguage)}
}

// Fallback returns the catalog's fallback language.
func (c *Catalog) Fallback() Language {
	return c.fallback
}

// Text returns the string for key in lang, applying fmt substitutions.
// Unsupported languages are normalized to the fallback before lookup.
func (c *Catalog) Text(key string, lang Language, args ...any) (string, error) {
	byLang, ok := catalog[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	text := byLang[Normalize(lang, c.fallback)]
	if len(args) > 0 {
		return fmt.Sprintf(text, args...), nil
	}
	return text, nil
}

// MustText is Text that panics on unknown keys. Intended for call sites
// where the key is a package constant; the dispatcher's outer boundary
// converts the panic into the generic error reply.
func (c *Catalog) MustText(key string, lang Language, args ...any) string {
	text, err := c.Text(key, lang, args...)
	if err != nil {
		panic(err)
	}
	return text
}

// Keys returns all catalog keys. Used by tests to verify completeness.
func Keys() []string {
	keys := make([]string, 0, len(catalog))
	for key := range catalog {
		keys = append(keys, key)
	}
	return keys
}

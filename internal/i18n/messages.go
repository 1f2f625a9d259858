// Package i18n holds the user-facing strings of the portal and picks the
// language to show them in.
//
// Message keys are the English source strings. Indonesian is the default
// language of the portal; English is the fallback for visitors who ask
// for it.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Sign-in messages.
const (
	MsgLoginFailed          = "Something went wrong while signing in with Google."
	MsgSignInCancelled      = "Sign-in was cancelled. Please try again."
	MsgVerifyNotRobot       = "Please verify that you are not a robot."
	MsgRegisterFailed       = "Registration with Google failed. Please try again."
	MsgRegisteredNew        = "Registration with your Google account succeeded!"
	MsgRegisteredExisting   = "This Google account is already registered. Please log in."
	MsgProfileUnavailable   = "Your profile could not be loaded. Please try again."
	MsgInvalidSignInAttempt = "The sign-in attempt expired or was invalid. Please try again."
	MsgUnknownProvider      = "That sign-in provider is not available."
	MsgSignInRequired       = "Please sign in first."
	MsgAdminOnly            = "This page is for administrators only."
)

// Page labels.
const (
	LabelLogin        = "Log in"
	LabelAdminLogin   = "Administrator log in"
	LabelRegister     = "Create an account"
	LabelSignInButton = "Sign in"
	LabelRegisterBtn  = "Register"
)

// Content messages.
const (
	MsgCaptionImageRequired = "Caption and image are required!"
	MsgImageTooLarge        = "Images can be at most 2MB."
	MsgImageType            = "Only image files can be uploaded."
	MsgGelarFieldsRequired  = "Title, content and category are required."
	MsgNotFound             = "The item could not be found."
	MsgInternal             = "Something went wrong. Please try again."
)

var indonesian = map[string]string{
	MsgLoginFailed:          "Terjadi kesalahan saat login dengan Google.",
	MsgSignInCancelled:      "Login dibatalkan. Silakan coba lagi.",
	MsgVerifyNotRobot:       "Tolong verifikasi bahwa Anda bukan robot.",
	MsgRegisterFailed:       "Pendaftaran menggunakan Google gagal. Silakan coba lagi.",
	MsgRegisteredNew:        "Pendaftaran berhasil menggunakan akun Google!",
	MsgRegisteredExisting:   "Akun Google ini sudah terdaftar. Silakan login.",
	MsgProfileUnavailable:   "Profil Anda tidak dapat dimuat. Silakan coba lagi.",
	MsgInvalidSignInAttempt: "Percobaan login kedaluwarsa atau tidak valid. Silakan coba lagi.",
	MsgUnknownProvider:      "Penyedia login tersebut tidak tersedia.",
	MsgSignInRequired:       "Silakan login terlebih dahulu.",
	MsgAdminOnly:            "Halaman ini hanya untuk admin.",

	MsgCaptionImageRequired: "Caption dan gambar harus diisi!",
	MsgImageTooLarge:        "Ukuran gambar maksimal 2MB",
	MsgImageType:            "Hanya file gambar yang dapat diunggah.",
	MsgGelarFieldsRequired:  "Judul, isi, dan kategori harus diisi.",
	MsgNotFound:             "Data tidak ditemukan.",
	MsgInternal:             "Terjadi kesalahan. Silakan coba lagi.",

	LabelLogin:        "Masuk",
	LabelAdminLogin:   "Login Admin",
	LabelRegister:     "Buat akun",
	LabelSignInButton: "Login",
	LabelRegisterBtn:  "Daftar",
}

func init() {
	for key, text := range indonesian {
		if err := message.SetString(language.Indonesian, key, text); err != nil {
			panic(err)
		}
		if err := message.SetString(language.English, key, key); err != nil {
			panic(err)
		}
	}
}

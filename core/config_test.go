package core

import (
	"path/filepath"

	"github.com/obiba/onyx/core/store"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"
)

var _ = Describe("configuration", func() {
	It("should name environment variables after the flags", func() {
		Expect(envName("storePath")).To(Equal("ONYX_STORE_PATH"))
		Expect(envName("kafkaEndpoints")).To(Equal("ONYX_KAFKA_ENDPOINTS"))
		Expect(envName("veryVerbose")).To(Equal("ONYX_VERY_VERBOSE"))
		Expect(envName("catalogue")).To(Equal("ONYX_CATALOGUE"))
	})

	Describe("store checks", func() {
		AfterEach(func() {
			viper.Reset()
		})
		It("should only accept known backends", func() {
			viper.Set("store", store.KIND_MEMORY)
			Expect(checkStoreKind()).To(Succeed())
			viper.Set("store", "postgres")
			Expect(checkStoreKind()).To(MatchError(ContainSubstring("postgres")))
		})
		It("should require a writable directory for sqlite", func() {
			viper.Set("store", store.KIND_SQLITE)
			viper.Set("storePath", filepath.Join(GinkgoT().TempDir(), "sub", "..", "onyx.db"))
			sanitizeStorePath()
			Expect(filepath.Base(viper.GetString("storePath"))).To(Equal("onyx.db"))
			Expect(checkStoreDirRights()).To(Succeed())

			viper.Set("storePath", "/nonexistent/onyx/onyx.db")
			Expect(checkStoreDirRights()).NotTo(Succeed())
		})
	})
})

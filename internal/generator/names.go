package generator

import (
	"math/rand"

	"github.com/jaswdr/faker"
)

// NameProvider produces plausible human names. Duplicates are allowed.
type NameProvider interface {
	Name() string
}

// NameProviderFactory builds an independent provider for one chunk of rows
type NameProviderFactory func(seed int64) NameProvider

type fakerNames struct {
	faker faker.Faker
}

func (fn fakerNames) Name() string {
	return fn.faker.Person().Name()
}

// FakerNames is the default NameProviderFactory
func FakerNames(seed int64) NameProvider {
	return fakerNames{faker: faker.NewWithSeed(rand.NewSource(seed))}
}

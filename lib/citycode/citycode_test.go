package citycode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const table = "\ufeff131,北京市\n315,南京市\n179,杭州市\nbroken\n198, 湛江市\n"

func TestLookup(t *testing.T) {
	cities, err := Parse(strings.NewReader(table))
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 4, cities.Len())

	city, err := cities.Lookup("南京")
	require.NoError(t, err)
	require.Equal(t, CityRef{Id: "315", Name: "南京市"}, city)

	city, err = cities.Lookup("北京")
	require.NoError(t, err)
	require.Equal(t, "131", city.Id)

	city, err = cities.Lookup("湛江")
	require.NoError(t, err)
	require.Equal(t, "湛江市", city.Name)

	_, err = cities.Lookup("纽约")
	require.ErrorIs(t, err, ErrCityNotFound)
	_, err = cities.Lookup(" ")
	require.ErrorIs(t, err, ErrCityNotFound)

	require.Len(t, cities.Search("京"), 2)
}

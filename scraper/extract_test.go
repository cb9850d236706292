package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricetrack/models"
)

const productPage = `
<html><body>
  <div id="product">
    <h1 class="title">  Mechanical Keyboard  </h1>
    <span class="price" data-amount="89.99">$89.99</span>
    <img class="photo" src="/images/kb.jpg"/>
  </div>
  <script>window.state = {"offerPrice": "1,299.00"};</script>
</body></html>`

func TestExtractField_Selector(t *testing.T) {
	value, err := ExtractField(productPage, models.StrategyRule{Selector: "h1.title"})
	require.NoError(t, err)
	assert.Equal(t, "Mechanical Keyboard", value)
}

func TestExtractField_SelectorAttribute(t *testing.T) {
	value, err := ExtractField(productPage, models.StrategyRule{Selector: "span.price", Attribute: "data-amount"})
	require.NoError(t, err)
	assert.Equal(t, "89.99", value)
}

func TestExtractField_RegexWinsOverSelector(t *testing.T) {
	rule := models.StrategyRule{
		Selector: "h1.title",
		Regex:    `"offerPrice":\s*"([^"]+)"`,
	}
	value, err := ExtractField(productPage, rule)
	require.NoError(t, err)
	assert.Equal(t, "1,299.00", value)
}

func TestExtractField_RegexWholeMatchWithoutGroup(t *testing.T) {
	value, err := ExtractField("total due 42.50 eur", models.StrategyRule{Regex: `[0-9]+\.[0-9]{2}`})
	require.NoError(t, err)
	assert.Equal(t, "42.50", value)
}

func TestExtractField_Misses(t *testing.T) {
	_, err := ExtractField(productPage, models.StrategyRule{Selector: ".does-not-exist"})
	assert.Error(t, err)

	_, err = ExtractField(productPage, models.StrategyRule{Regex: `missing-(pattern)`})
	assert.Error(t, err)

	_, err = ExtractField(productPage, models.StrategyRule{Selector: "span.price", Attribute: "data-missing"})
	assert.Error(t, err)

	_, err = ExtractField(productPage, models.StrategyRule{})
	assert.Error(t, err)
}

func TestExtractPrice(t *testing.T) {
	price, currency, err := ExtractPrice(productPage, models.StrategyRule{Selector: "span.price"}, NewLocaleParser())
	require.NoError(t, err)
	assert.Equal(t, 89.99, price)
	assert.Equal(t, "USD", currency)
}

func TestExtractPrice_NonNumericText(t *testing.T) {
	_, _, err := ExtractPrice(`<p class="p">call for price</p>`, models.StrategyRule{Selector: "p.p"}, NewLocaleParser())
	assert.Error(t, err)
}
